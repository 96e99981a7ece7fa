package model

import "github.com/google/uuid"

// NewID 生成 UUIDv7 主键
// v7 按时间有序，进程内单调递增，字符串序即插入序，游标分页依赖这一点
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
