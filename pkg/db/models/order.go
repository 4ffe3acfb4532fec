package models

import "time"

// Order is one fulfilled order. Rows are append-only: created exactly once by
// the orchestrator after stock deduction succeeds, never updated or deleted.
type Order struct {
	OrderID      string    `gorm:"column:order_id;primaryKey" json:"order_id"`
	UserID       string    `gorm:"column:user_id;not null;index" json:"user_id"`
	MedicineName string    `gorm:"column:medicine_name;not null" json:"medicine_name"`
	Quantity     int       `gorm:"column:quantity;not null" json:"quantity"`
	DosagePerDay int       `gorm:"column:dosage_per_day;not null" json:"dosage_per_day"`
	PurchaseDate time.Time `gorm:"column:purchase_date;not null" json:"purchase_date"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
}

func (Order) TableName() string {
	return "orders"
}
