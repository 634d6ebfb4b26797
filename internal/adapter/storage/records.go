package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/obesho/internal/core/domain"
)

type modelRecord struct {
	ID           int64              `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string             `gorm:"column:name;type:varchar(200);uniqueIndex;not null"`
	Price        decimal.Decimal    `gorm:"column:price;type:decimal(10,2);not null"`
	Img          string             `gorm:"column:img;type:varchar(1000);not null"`
	StockEntries []stockEntryRecord `gorm:"foreignKey:ModelID;references:ID"`
}

func (modelRecord) TableName() string { return "product_model" }

type sizeRecord struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement:false"`
}

func (sizeRecord) TableName() string { return "size" }

type stockEntryRecord struct {
	ModelID  int64 `gorm:"column:model_id;primaryKey;autoIncrement:false"`
	SizeID   int64 `gorm:"column:size_id;primaryKey;autoIncrement:false"`
	Quantity int   `gorm:"column:quantity;not null;check:chk_stock_entry_quantity,quantity >= 0"`
}

func (stockEntryRecord) TableName() string { return "stock_entry" }

type orderRecord struct {
	ID        int64             `gorm:"column:id;primaryKey;autoIncrement"`
	Status    string            `gorm:"column:status;type:varchar(32);not null"`
	CreatedAt time.Time         `gorm:"column:created_at;not null"`
	Lines     []orderLineRecord `gorm:"foreignKey:OrderID;references:ID"`
}

func (orderRecord) TableName() string { return "orders" }

type orderLineRecord struct {
	OrderID  int64 `gorm:"column:order_id;primaryKey;autoIncrement:false"`
	ModelID  int64 `gorm:"column:model_id;primaryKey;autoIncrement:false"`
	SizeID   int64 `gorm:"column:size_id;primaryKey;autoIncrement:false"`
	Quantity int   `gorm:"column:quantity;not null;check:chk_order_line_quantity,quantity > 0"`
}

func (orderLineRecord) TableName() string { return "order_line" }

type orderStatusHistoryRecord struct {
	OrderID   int64     `gorm:"column:order_id;primaryKey;autoIncrement:false"`
	Status    string    `gorm:"column:status;type:varchar(32);primaryKey"`
	ChangedAt time.Time `gorm:"column:changed_at;not null"`
}

func (orderStatusHistoryRecord) TableName() string { return "order_status_history" }

// allRecords is the migration order: referenced tables first.
var allRecords = []interface{}{
	&sizeRecord{},
	&modelRecord{},
	&stockEntryRecord{},
	&orderRecord{},
	&orderLineRecord{},
	&orderStatusHistoryRecord{},
}

func (r stockEntryRecord) toDomain() domain.StockEntry {
	return domain.StockEntry{
		ModelID:  domain.ModelID(r.ModelID),
		SizeID:   domain.SizeID(r.SizeID),
		Quantity: r.Quantity,
	}
}

func (r orderLineRecord) toDomain() domain.OrderLine {
	return domain.OrderLine{
		OrderID:  domain.OrderID(r.OrderID),
		ModelID:  domain.ModelID(r.ModelID),
		SizeID:   domain.SizeID(r.SizeID),
		Quantity: r.Quantity,
	}
}

func (r orderRecord) toDomain() domain.Order {
	order := domain.Order{
		ID:        domain.OrderID(r.ID),
		Status:    domain.OrderStatus(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
	}
	for _, line := range r.Lines {
		order.Lines = append(order.Lines, line.toDomain())
	}
	return order
}

func (r modelRecord) toDomain() domain.ProductModel {
	model := domain.ProductModel{
		ID:             domain.ModelID(r.ID),
		Name:           r.Name,
		Price:          r.Price,
		Image:          r.Img,
		AvailableSizes: make([]domain.SizeStock, 0, len(r.StockEntries)),
	}
	for _, e := range r.StockEntries {
		model.AvailableSizes = append(model.AvailableSizes, domain.SizeStock{
			SizeID:   domain.SizeID(e.SizeID),
			Quantity: e.Quantity,
		})
	}
	return model
}
