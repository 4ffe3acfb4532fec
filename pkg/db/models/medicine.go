package models

import "time"

// Medicine is one row of the catalog. The name is the business key and is
// unique case-insensitively; stock_level is written only by the inventory
// ledger and never goes negative.
type Medicine struct {
	Name                 string    `gorm:"column:medicine_name;primaryKey" json:"medicine_name"`
	UnitType             string    `gorm:"column:unit_type;not null;default:'tablet'" json:"unit_type"`
	StockLevel           int       `gorm:"column:stock_level;not null;default:0" json:"stock_level"`
	PrescriptionRequired bool      `gorm:"column:prescription_required;not null;default:false" json:"prescription_required"`
	StockThreshold       int       `gorm:"column:stock_threshold;not null;default:50" json:"stock_threshold"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (Medicine) TableName() string {
	return "medicines"
}
