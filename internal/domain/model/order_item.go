package model

import "github.com/shopspring/decimal"

// 注文明細。商品名と単価は注文時点のスナップショット。
type OrderItem struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64 `gorm:"not null;index" json:"order_id"`
	ProductID int64 `gorm:"not null;index" json:"product_id"`

	// 明細がある商品は削除できない（NO ACTION。SQLiteでもFK違反として返る）
	Product *Product `gorm:"foreignKey:ProductID" json:"-"`

	ProductName string          `gorm:"type:varchar(100);not null" json:"product_name"`
	Quantity    uint            `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}
