package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 商品カテゴリ。商品とは多対多。
type Category struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(60);not null" json:"name"`
}

type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"type:varchar(100);not null" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Image       *string         `gorm:"type:varchar(255)" json:"image"`
	Featured    bool            `gorm:"not null;default:false;index" json:"featured"`
	Description *string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`

	// カテゴリ削除で商品は消えない（中間テーブルのみ削除）
	Categories []Category `gorm:"many2many:product_categories;constraint:OnDelete:CASCADE" json:"categories"`
}
