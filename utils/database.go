package utils

import (
	"errors"
)

// RetryOnConflict 执行操作, 遇到并发冲突时重试 retries 次. 其他错误直接返回
func RetryOnConflict(retries int, operation func(attempt int) error) error {
	if retries < 0 {
		retries = 0
	}

	var lastError error
	for i := 0; i <= retries; i++ {
		err := operation(i)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConcurrencyConflict) {
			return err
		}

		lastError = err
		if i < retries {
			LogInfo(map[string]interface{}{
				"attempt":  i + 1,
				"maxRetry": retries,
			}, "检测到并发修改，准备重试")
		}
	}

	return lastError
}
