package domain

import "github.com/shopspring/decimal"

type ModelID int64

type SizeID int64

// ProductModel is a catalog entry. AvailableSizes is filled by catalog reads only.
type ProductModel struct {
	ID             ModelID
	Name           string
	Price          decimal.Decimal
	Image          string
	AvailableSizes []SizeStock
}

type SizeStock struct {
	SizeID   SizeID
	Quantity int
}

type Size struct {
	ID SizeID
}

type StockKey struct {
	ModelID ModelID
	SizeID  SizeID
}

// StockEntry is the available quantity of one (model, size) pair. Quantity never drops below zero.
type StockEntry struct {
	ModelID  ModelID
	SizeID   SizeID
	Quantity int
}

// CommittedReservation is the post-decrement entry plus the amount taken from it.
type CommittedReservation struct {
	Entry    StockEntry
	Reserved int
}

type Catalog struct {
	Models []ProductModel
	Sizes  []Size
}
