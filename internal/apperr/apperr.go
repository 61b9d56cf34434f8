// Package apperr 定义业务错误分类，handler 根据分类映射 HTTP 状态码
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 输入不合法（进度越界、日期格式错误等）
	ErrValidation = errors.New("validation error")
	// ErrPermissionDenied 角色权限不足
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound 课题或团队不存在
	ErrNotFound = errors.New("not found")
	// ErrStore 存储层失败，原样透传
	ErrStore = errors.New("store error")
	// ErrUnauthenticated 未登录
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Validation 构造校验错误
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// PermissionDenied 构造权限错误
func PermissionDenied(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, fmt.Sprintf(format, args...))
}

// NotFound 构造不存在错误
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Store 包装存储层错误，已分类的错误保持不变
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrPermissionDenied) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
