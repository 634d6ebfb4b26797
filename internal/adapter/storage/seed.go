package storage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rl1809/obesho/internal/core/domain"
)

// Fixture is a catalog to load into an empty or partially filled store.
type Fixture struct {
	Models []domain.ProductModel
	Sizes  []domain.Size
	Stock  []domain.StockEntry
}

// DefaultFixture is the demo catalog: ten models, EU sizes 35 to 45, three
// pairs of every odd size and none of the even ones.
func DefaultFixture() Fixture {
	names := []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot", "Golf", "Hotel", "India", "Juliett"}

	var f Fixture
	for i, name := range names {
		f.Models = append(f.Models, domain.ProductModel{
			ID:    domain.ModelID(i + 1),
			Name:  name,
			Price: decimal.NewFromInt(int64(31 + i)),
			Image: fmt.Sprintf("img/model/%c.jpg", 'a'+i),
		})
	}
	for s := 35; s <= 45; s++ {
		f.Sizes = append(f.Sizes, domain.Size{ID: domain.SizeID(s)})
	}
	for _, m := range f.Models {
		for _, s := range f.Sizes {
			qty := 0
			if s.ID%2 == 1 {
				qty = 3
			}
			f.Stock = append(f.Stock, domain.StockEntry{ModelID: m.ID, SizeID: s.ID, Quantity: qty})
		}
	}
	return f
}

// Seed inserts the fixture, skipping rows that already exist so reruns keep current stock.
// With resetStock, stock quantities are overwritten with the fixture's.
func (a *GormAdapter) Seed(ctx context.Context, f Fixture, resetStock bool) error {
	return classify(a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skipExisting := clause.OnConflict{DoNothing: true}

		if len(f.Sizes) > 0 {
			sizes := make([]sizeRecord, 0, len(f.Sizes))
			for _, s := range f.Sizes {
				sizes = append(sizes, sizeRecord{ID: int64(s.ID)})
			}
			if err := tx.Clauses(skipExisting).Create(&sizes).Error; err != nil {
				return fmt.Errorf("seed sizes: %w", err)
			}
		}

		if len(f.Models) > 0 {
			models := make([]modelRecord, 0, len(f.Models))
			for _, m := range f.Models {
				models = append(models, modelRecord{ID: int64(m.ID), Name: m.Name, Price: m.Price, Img: m.Image})
			}
			if err := tx.Clauses(skipExisting).Create(&models).Error; err != nil {
				return fmt.Errorf("seed models: %w", err)
			}
		}

		for _, e := range f.Stock {
			var err error
			if resetStock {
				err = setStock(tx, e)
			} else {
				err = tx.Clauses(skipExisting).Create(&stockEntryRecord{
					ModelID:  int64(e.ModelID),
					SizeID:   int64(e.SizeID),
					Quantity: e.Quantity,
				}).Error
			}
			if err != nil {
				return fmt.Errorf("seed stock %d/%d: %w", e.ModelID, e.SizeID, err)
			}
		}
		return nil
	}))
}

// SetStock creates the entry or overwrites its quantity.
func (a *GormAdapter) SetStock(ctx context.Context, entry domain.StockEntry) error {
	if entry.Quantity < 0 {
		return domain.Invalid("stock quantity cannot be negative")
	}
	return classify(setStock(a.db.WithContext(ctx), entry))
}

func setStock(db *gorm.DB, entry domain.StockEntry) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "model_id"}, {Name: "size_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity"}),
	}).Create(&stockEntryRecord{
		ModelID:  int64(entry.ModelID),
		SizeID:   int64(entry.SizeID),
		Quantity: entry.Quantity,
	}).Error
}
