package utils

import (
	"fmt"
	"time"

	"github.com/BerniceZTT/crm_lifecycle/models"

	"github.com/dgrijalva/jwt-go"
)

// TokenTTL token 有效期
const TokenTTL = 30 * 24 * time.Hour

// GenerateToken 生成JWT令牌
func GenerateToken(secret []byte, actor models.Actor) (string, error) {
	// 创建JWT Claims
	claims := jwt.MapClaims{
		"id":       actor.ID,
		"username": actor.Username,
		"role":     string(actor.Role),
		"exp":      time.Now().Add(TokenTTL).Unix(),
		"iat":      time.Now().Unix(),
	}
	if actor.RelatedSalesID != "" {
		claims["relatedSalesId"] = actor.RelatedSalesID
	}

	// 签名token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		Logger.Error().Err(err).Msg("生成token失败")
		return "", err
	}

	return tokenString, nil
}

// ParseToken 解析和验证JWT令牌
func ParseToken(secret []byte, tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	// 验证token并提取claims
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("无效的token")
}

// ActorFromClaims 从 claims 中提取操作人
func ActorFromClaims(claims jwt.MapClaims) (*models.Actor, error) {
	id, ok := claims["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("无效的用户ID")
	}

	role, ok := claims["role"].(string)
	if !ok || !models.UserRole(role).IsValid() {
		return nil, fmt.Errorf("无效的用户角色")
	}

	username, ok := claims["username"].(string)
	if !ok {
		// 检查是否有 "name" 字段作为备选
		if name, ok := claims["name"].(string); ok {
			username = name
		} else {
			return nil, fmt.Errorf("无效的用户名")
		}
	}

	actor := &models.Actor{
		ID:       id,
		Username: username,
		Role:     models.UserRole(role),
	}
	if salesID, ok := claims["relatedSalesId"].(string); ok {
		actor.RelatedSalesID = salesID
	}
	return actor, nil
}
