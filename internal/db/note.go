package db

import "gorm.io/gorm"

const (
	NotePriorityNormal = "normal"
	NotePriorityUrgent = "urgent"
)

// Note 关于客户的内部备注，正文为 Markdown
type Note struct {
	gorm.Model
	ClientID uint `gorm:"not null;index"`
	Client   Client
	AuthorID *uint
	Note     string `gorm:"type:text;not null"`
	Priority string `gorm:"size:15;not null;default:normal"`
	Category string `gorm:"size:50"`
	IsRead   bool   `gorm:"not null;default:false"`
}
