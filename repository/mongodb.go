package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/BerniceZTT/crm_lifecycle/models"
	"github.com/BerniceZTT/crm_lifecycle/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// MongoStore MongoDB 存储, 事务需要副本集
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Store = (*MongoStore)(nil)

// InitMongoDB 初始化MongoDB连接
func InitMongoDB(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	// 设置连接超时
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("连接MongoDB失败: %w", err)
	}

	// 检查连接
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping MongoDB失败: %w", err)
	}

	utils.Logger.Info().Str("database", dbName).Msg("已连接到MongoDB")
	return &MongoStore{client: client, db: client.Database(dbName)}, nil
}

// Close 关闭MongoDB连接
func (s *MongoStore) Close(ctx context.Context) {
	if err := s.client.Disconnect(ctx); err != nil {
		utils.Logger.Error().Err(err).Msg("断开MongoDB连接失败")
		return
	}
	utils.Logger.Info().Msg("已断开MongoDB连接")
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

var managedCollections = []string{
	UsersCollection,
	AgentsCollection,
	CustomersCollection,
	CustAssignCollection,
	CustomerProgressCollection,
	SystemConfigsCollection,
}

// InitializeCollections 初始化数据库集合和索引. 事务内不能创建集合, 需要在启动时完成
func (s *MongoStore) InitializeCollections(ctx context.Context) error {
	existing, err := s.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("检查集合失败: %w", err)
	}
	exists := make(map[string]bool, len(existing))
	for _, name := range existing {
		exists[name] = true
	}

	for _, collName := range managedCollections {
		if exists[collName] {
			utils.Logger.Info().Str("collection", collName).Msg("集合已存在")
			continue
		}
		if err := s.db.CreateCollection(ctx, collName); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}
		utils.Logger.Info().Str("collection", collName).Msg("创建集合成功")
	}

	return s.ensureIndexes(ctx)
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		CustomersCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "isinpublicpool", Value: 1}, {Key: "createdat", Value: -1}}},
			{Keys: bson.D{{Key: "progress", Value: 1}}},
		},
		CustAssignCollection: {
			{Keys: bson.D{{Key: "customerid", Value: 1}, {Key: "createdat", Value: 1}}},
			{
				Keys:    bson.D{{Key: "idempotencykey", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
		CustomerProgressCollection: {
			{Keys: bson.D{{Key: "customerid", Value: 1}, {Key: "createdat", Value: 1}}},
		},
	}

	for collName, idx := range indexes {
		if _, err := s.collection(collName).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("创建索引失败(%s): %w", collName, err)
		}
	}
	return nil
}

// Stats 各集合的文档数量
func (s *MongoStore) Stats(ctx context.Context) map[string]interface{} {
	result := make(map[string]interface{})
	for _, collName := range managedCollections {
		count, err := s.collection(collName).CountDocuments(ctx, bson.M{})
		if err != nil {
			utils.Logger.Error().Err(err).Str("collection", collName).Msg("获取集合计数失败")
			result[collName] = map[string]interface{}{"count": 0, "error": err.Error()}
			continue
		}
		result[collName] = map[string]interface{}{"count": count}
	}
	return result
}

// WithTransaction 在副本集事务中执行 fn
func (s *MongoStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("创建会话失败: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}

	sc := mongo.NewSessionContext(ctx, session)
	if err := fn(sc); err != nil {
		if abortErr := session.AbortTransaction(ctx); abortErr != nil {
			utils.Logger.Warn().Err(abortErr).Msg("回滚事务失败")
		}
		return mapWriteError(err)
	}

	if err := session.CommitTransaction(ctx); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// mapWriteError 把写冲突类错误转换为并发冲突, 由业务层决定是否重试
func mapWriteError(err error) error {
	var apiErr *utils.ApiError
	if errors.As(err, &apiErr) {
		return err
	}
	if isWriteConflict(err) || mongo.IsDuplicateKeyError(err) {
		return utils.CreateConcurrencyConflictError()
	}
	return err
}

// mapInsertCustomerError 客户集合的重复键来自名称唯一索引
func mapInsertCustomerError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return utils.CreateValidationError("客户名称已存在")
	}
	return fmt.Errorf("创建客户失败: %w", mapWriteError(err))
}

func isWriteConflict(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == 112 || cmdErr.HasErrorLabel("TransientTransactionError")
	}
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) {
		return labeled.HasErrorLabel("TransientTransactionError")
	}
	return false
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	// MongoDB可重试错误代码
	retryableCodes := map[int32]bool{
		6:     true, // HostUnreachable
		7:     true, // HostNotFound
		89:    true, // NetworkTimeout
		91:    true, // ShutdownInProgress
		189:   true, // PrimarySteppedDown
		10107: true, // NotMaster
		13436: true, // NotMasterNoSlaveOk
		11600: true, // InterruptedAtShutdown
		11602: true, // InterruptedDueToReplStateChange
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return retryableCodes[cmdErr.Code]
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}

	// 检查常见网络错误
	errMsg := strings.ToLower(err.Error())
	for _, ne := range []string{"connection refused", "connection reset", "no reachable servers", "server selection error"} {
		if strings.Contains(errMsg, ne) {
			return true
		}
	}
	return false
}

// executeRead 执行只读操作, 网络类错误重试. 事务内不重试
func executeRead(ctx context.Context, retries int, operation func() error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return operation()
	}

	var lastErr error
	for i := 0; i < retries; i++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryableError(err) {
			break
		}
		utils.Logger.Error().Err(err).Msgf("数据库操作失败，重试 (%d/%d)", i+1, retries)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(200*(i+1)) * time.Millisecond):
		}
	}
	return lastErr
}

const readRetries = 3

// FindCustomer 查找客户
func (s *MongoStore) FindCustomer(ctx context.Context, id string) (*models.Customer, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.CreateNotFoundError("客户")
	}

	var customer models.Customer
	err = executeRead(ctx, readRetries, func() error {
		return s.collection(CustomersCollection).FindOne(ctx, bson.M{"_id": objID}).Decode(&customer)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.CreateNotFoundError("客户")
	}
	if err != nil {
		return nil, fmt.Errorf("查询客户失败: %w", err)
	}
	return &customer, nil
}

// InsertCustomer 新增客户
func (s *MongoStore) InsertCustomer(ctx context.Context, customer *models.Customer) error {
	if customer.ID.IsZero() {
		customer.ID = primitive.NewObjectID()
	}
	customer.SyncDerived()
	if err := customer.Validate(); err != nil {
		return utils.CreateValidationError(err.Error())
	}

	if _, err := s.collection(CustomersCollection).InsertOne(ctx, customer); err != nil {
		return mapInsertCustomerError(err)
	}
	utils.LogDbOperation("insert", CustomersCollection, nil, map[string]interface{}{"customerId": customer.ID.Hex()})
	return nil
}

// UpdateCustomer 按版本整体替换客户文档
func (s *MongoStore) UpdateCustomer(ctx context.Context, customer *models.Customer, expectedVersion int64) error {
	customer.SyncDerived()
	if err := customer.Validate(); err != nil {
		return utils.CreateValidationError(err.Error())
	}

	next := customer.Clone()
	next.Version = expectedVersion + 1

	result, err := s.collection(CustomersCollection).ReplaceOne(ctx,
		bson.M{"_id": customer.ID, "version": expectedVersion},
		next,
	)
	if err != nil {
		return fmt.Errorf("更新客户失败: %w", mapWriteError(err))
	}
	if result.MatchedCount == 0 {
		return utils.CreateConcurrencyConflictError()
	}

	customer.Version = next.Version
	utils.LogDbOperation("update", CustomersCollection, bson.M{"_id": customer.ID, "version": expectedVersion}, map[string]interface{}{
		"version": customer.Version,
	})
	return nil
}

// DeleteCustomer 删除客户, 历史记录集合不做级联删除
func (s *MongoStore) DeleteCustomer(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return utils.CreateNotFoundError("客户")
	}

	result, err := s.collection(CustomersCollection).DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("删除客户失败: %w", mapWriteError(err))
	}
	if result.DeletedCount == 0 {
		return utils.CreateNotFoundError("客户")
	}
	utils.LogDbOperation("delete", CustomersCollection, bson.M{"_id": objID}, result.DeletedCount)
	return nil
}

// buildCustomerFilter 构建客户查询条件
func buildCustomerFilter(filter models.CustomerFilter) bson.M {
	query := bson.M{}

	// 关键词搜索 - 仅搜索客户名称
	if filter.Keyword != "" {
		query["name"] = bson.M{"$regex": regexp.QuoteMeta(filter.Keyword), "$options": "i"}
	}
	if filter.ApplicationField != "" {
		query["applicationfield"] = bson.M{"$regex": regexp.QuoteMeta(filter.ApplicationField), "$options": "i"}
	}
	if filter.Nature != "" {
		query["nature"] = filter.Nature
	}
	if filter.Importance != "" {
		query["importance"] = filter.Importance
	}
	if filter.Progress != "" {
		query["progress"] = filter.Progress
	}
	if filter.InPublicPool != nil {
		query["isinpublicpool"] = *filter.InPublicPool
	}
	return query
}

// ListCustomers 按条件查询客户
func (s *MongoStore) ListCustomers(ctx context.Context, filter models.CustomerFilter) ([]models.Customer, error) {
	query := buildCustomerFilter(filter)
	opts := options.Find().SetSort(bson.D{{Key: "createdat", Value: -1}, {Key: "_id", Value: -1}})

	customers := make([]models.Customer, 0)
	err := executeRead(ctx, readRetries, func() error {
		cursor, err := s.collection(CustomersCollection).Find(ctx, query, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &customers)
	})
	if err != nil {
		return nil, fmt.Errorf("查询客户列表失败: %w", err)
	}
	return customers, nil
}

// CustomerNameExists 客户名称是否已存在
func (s *MongoStore) CustomerNameExists(ctx context.Context, name string) (bool, error) {
	count, err := s.collection(CustomersCollection).CountDocuments(ctx, bson.M{"name": name})
	if err != nil {
		return false, fmt.Errorf("检查客户名称失败: %w", err)
	}
	return count > 0, nil
}

// AppendAssignmentHistory 追加分配记录
func (s *MongoStore) AppendAssignmentHistory(ctx context.Context, history *models.CustomerAssignmentHistory) error {
	if history.ID.IsZero() {
		history.ID = primitive.NewObjectID()
	}
	if _, err := s.collection(CustAssignCollection).InsertOne(ctx, history); err != nil {
		return fmt.Errorf("添加客户分配历史记录失败: %w", mapWriteError(err))
	}
	return nil
}

// AppendProgressHistory 追加进展记录
func (s *MongoStore) AppendProgressHistory(ctx context.Context, history *models.CustomerProgressHistory) error {
	if history.ID.IsZero() {
		history.ID = primitive.NewObjectID()
	}
	if _, err := s.collection(CustomerProgressCollection).InsertOne(ctx, history); err != nil {
		return fmt.Errorf("添加客户进展历史记录失败: %w", mapWriteError(err))
	}
	return nil
}

// historySort ObjectID 在同一进程内单调递增, 作为同一时间的写入顺序
var historySort = bson.D{{Key: "createdat", Value: 1}, {Key: "_id", Value: 1}}

// ListAssignmentHistory 查询客户的分配记录
func (s *MongoStore) ListAssignmentHistory(ctx context.Context, customerID string) ([]models.CustomerAssignmentHistory, error) {
	rows := make([]models.CustomerAssignmentHistory, 0)
	err := executeRead(ctx, readRetries, func() error {
		cursor, err := s.collection(CustAssignCollection).Find(ctx,
			bson.M{"customerid": customerID},
			options.Find().SetSort(historySort),
		)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("查询客户分配历史失败: %w", err)
	}
	return rows, nil
}

// ListProgressHistory 查询客户的进展记录
func (s *MongoStore) ListProgressHistory(ctx context.Context, customerID string) ([]models.CustomerProgressHistory, error) {
	rows := make([]models.CustomerProgressHistory, 0)
	err := executeRead(ctx, readRetries, func() error {
		cursor, err := s.collection(CustomerProgressCollection).Find(ctx,
			bson.M{"customerid": customerID},
			options.Find().SetSort(historySort),
		)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("查询客户进展历史失败: %w", err)
	}
	return rows, nil
}

// FindAssignmentByIdempotencyKey 按幂等键查找分配记录
func (s *MongoStore) FindAssignmentByIdempotencyKey(ctx context.Context, key string) (*models.CustomerAssignmentHistory, error) {
	if key == "" {
		return nil, nil
	}

	var history models.CustomerAssignmentHistory
	err := s.collection(CustAssignCollection).FindOne(ctx, bson.M{"idempotencykey": key}).Decode(&history)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询幂等记录失败: %w", err)
	}
	return &history, nil
}

// FindSalesUser 查找已审核的原厂销售
func (s *MongoStore) FindSalesUser(ctx context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.CreateNotFoundError("销售")
	}

	var user models.User
	err = s.collection(UsersCollection).FindOne(ctx, bson.M{
		"_id":    objID,
		"role":   models.UserRoleFACTORY_SALES,
		"status": models.UserStatusAPPROVED,
	}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.CreateNotFoundError("销售")
	}
	if err != nil {
		return nil, fmt.Errorf("查询销售失败: %w", err)
	}
	return &user, nil
}

// FindAgent 查找已审核的代理商
func (s *MongoStore) FindAgent(ctx context.Context, id string) (*models.Agent, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, utils.CreateNotFoundError("代理商")
	}

	var agent models.Agent
	err = s.collection(AgentsCollection).FindOne(ctx, bson.M{
		"_id":    objID,
		"status": models.UserStatusAPPROVED,
	}).Decode(&agent)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.CreateNotFoundError("代理商")
	}
	if err != nil {
		return nil, fmt.Errorf("查询代理商失败: %w", err)
	}
	return &agent, nil
}

// FindSystemConfig 查找启用中的系统配置
func (s *MongoStore) FindSystemConfig(ctx context.Context, configType models.ConfigType) (*models.SystemConfig, error) {
	var cfg models.SystemConfig
	err := s.collection(SystemConfigsCollection).FindOne(ctx, bson.M{
		"configType": configType,
		"isEnabled":  true,
	}).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询系统配置失败: %w", err)
	}
	return &cfg, nil
}
