package model

import (
	"time"
)

// StoredFile 归档的上传文件
type StoredFile struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DataSetID   string    `json:"data_set_id" gorm:"type:varchar(36);index"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	StorageType string    `json:"storage_type"` // local, minio
	FilePath    string    `json:"file_path"`    // 存储路径或对象名
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (StoredFile) TableName() string {
	return "stored_files"
}
