package model

import (
	"time"
)

// DataSet 微调数据集
// PromptTemplateTokenCount / CompletionTemplateTokenCount 是模板静态文本的 token 数缓存，
// 模板变更时必须重新计算
type DataSet struct {
	ID                           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title                        string    `json:"title" gorm:"type:varchar(255);index"`
	PromptTemplate               string    `json:"prompt_template" gorm:"type:text"`
	CompletionTemplate           string    `json:"completion_template" gorm:"type:text"`
	PromptTemplateTokenCount     int       `json:"prompt_template_token_count" gorm:"not null;default:0"`
	CompletionTemplateTokenCount int       `json:"completion_template_token_count" gorm:"not null;default:0"`
	CreatedAt                    time.Time `json:"created_at"`
	UpdatedAt                    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (DataSet) TableName() string {
	return "data_sets"
}

// TemplateTokenCount 每条导出记录需要支付的模板开销
func (d *DataSet) TemplateTokenCount() int {
	return d.PromptTemplateTokenCount + d.CompletionTemplateTokenCount
}

// Row 微调数据行，生命周期受所属 DataSet 约束
type Row struct {
	ID                   string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DataSetID            string    `json:"data_set_id" gorm:"type:varchar(36);index:idx_rows_data_set_id_id,priority:1;not null"`
	Prompt               string    `json:"prompt" gorm:"type:text"`
	Completion           string    `json:"completion" gorm:"type:text"`
	PromptTokenCount     int       `json:"prompt_token_count" gorm:"not null;default:0"`
	CompletionTokenCount int       `json:"completion_token_count" gorm:"not null;default:0"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	// 外键约束，数据集删除后不能再写入或残留数据行
	DataSet *DataSet `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName 指定表名
func (Row) TableName() string {
	return "finetune_rows"
}

// RowTokenCount 游标扫描 token 数时只读取的列
type RowTokenCount struct {
	ID                   string
	PromptTokenCount     int
	CompletionTokenCount int
}

// TableName 与 Row 共用一张表
func (RowTokenCount) TableName() string {
	return "finetune_rows"
}
