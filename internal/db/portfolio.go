package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Portfolio 定义作品集条目模型，对应 portfolios 表。
// 指针与切片字段为 nil 时表示该字段缺省（NULL）。
type Portfolio struct {
	ID               string `gorm:"primaryKey;size:36"`
	Title            string `gorm:"not null"`
	Description      *string
	ThumbnailURL     *string
	Technologies     datatypes.JSONSlice[string]
	Category         *string
	RolesResponsible datatypes.JSONSlice[string]
	DemoURL          *string
	GithubURL        *string
	IsPublished      bool `gorm:"not null;default:false;index"`
	SortOrder        int  `gorm:"not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName pins the table name.
func (Portfolio) TableName() string {
	return "portfolios"
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (p *Portfolio) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
