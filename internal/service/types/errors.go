// Package types 定义服务层共享的错误分类
package types

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// 错误分类，handler 层据此映射 HTTP 状态码
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrUpload      = errors.New("upload error")
	ErrProvider    = errors.New("provider error")
	ErrPersistence = errors.New("persistence error")
)

// Validationf 构造校验错误
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf 构造资源不存在错误
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// StoreError 将 gorm 错误归类：记录不存在映射为 ErrNotFound，其余原样包装为 ErrPersistence
func StoreError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// Classify 返回错误所属的分类哨兵，未知错误返回 nil
func Classify(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrUpload, ErrProvider, ErrPersistence} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
