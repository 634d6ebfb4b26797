package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/obesho/internal/core/domain"
)

func init() {
	// prices go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// AddItemRequest is the body of POST /orderitem/ and of the AddItem RPC.
// A missing or null order_id starts a new order; a missing quantity means one unit.
type AddItemRequest struct {
	OrderID  *int64 `json:"order_id,omitempty"`
	ModelID  int64  `json:"model_id"`
	SizeID   int64  `json:"size_id"`
	Quantity *int   `json:"quantity,omitempty"`
}

func (r AddItemRequest) toDomain() (domain.AddItemRequest, error) {
	req := domain.AddItemRequest{
		ModelID:  domain.ModelID(r.ModelID),
		SizeID:   domain.SizeID(r.SizeID),
		Quantity: domain.DefaultQuantity,
	}
	if r.OrderID != nil {
		id := domain.OrderID(*r.OrderID)
		req.OrderID = &id
	}
	if r.Quantity != nil {
		req.Quantity = *r.Quantity
	}
	return req, req.Validate()
}

type OrderDTO struct {
	ID        int64          `json:"id"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	Items     []OrderItemDTO `json:"items,omitempty"`
}

type OrderItemDTO struct {
	OrderID int64 `json:"order_id"`
	ModelID int64 `json:"model_id"`
	SizeID  int64 `json:"size_id"`
	Qty     int   `json:"qty"`
}

type AvailableSizeDTO struct {
	ModelID int64 `json:"model_id"`
	SizeID  int64 `json:"size_id"`
	Qty     int   `json:"qty"`
}

// AddItemResponse carries the order, the merged line and the stock left after the reservation.
type AddItemResponse struct {
	Order         OrderDTO         `json:"order"`
	OrderItem     OrderItemDTO     `json:"order_item"`
	AvailableSize AvailableSizeDTO `json:"available_size"`
	Merged        bool             `json:"merged"`
}

type GetOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

type GetCatalogRequest struct{}

type SizeStockDTO struct {
	SizeID int64 `json:"size_id"`
	Qty    int   `json:"qty"`
}

type ModelDTO struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Img            string          `json:"img"`
	AvailableSizes []SizeStockDTO  `json:"available_sizes"`
}

type SizeDTO struct {
	ID int64 `json:"id"`
}

type CatalogResponse struct {
	Models []ModelDTO `json:"models"`
	Sizes  []SizeDTO  `json:"sizes"`
}

type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func newOrderDTO(o domain.Order) OrderDTO {
	dto := OrderDTO{
		ID:        int64(o.ID),
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
	}
	for _, l := range o.Lines {
		dto.Items = append(dto.Items, newOrderItemDTO(l))
	}
	return dto
}

func newOrderItemDTO(l domain.OrderLine) OrderItemDTO {
	return OrderItemDTO{
		OrderID: int64(l.OrderID),
		ModelID: int64(l.ModelID),
		SizeID:  int64(l.SizeID),
		Qty:     l.Quantity,
	}
}

func newAddItemResponse(res domain.AddItemResult) AddItemResponse {
	return AddItemResponse{
		Order:     newOrderDTO(res.Order),
		OrderItem: newOrderItemDTO(res.Line),
		AvailableSize: AvailableSizeDTO{
			ModelID: int64(res.StockEntry.ModelID),
			SizeID:  int64(res.StockEntry.SizeID),
			Qty:     res.StockEntry.Quantity,
		},
		Merged: res.Merged,
	}
}

func newCatalogResponse(c domain.Catalog) CatalogResponse {
	resp := CatalogResponse{
		Models: make([]ModelDTO, 0, len(c.Models)),
		Sizes:  make([]SizeDTO, 0, len(c.Sizes)),
	}
	for _, m := range c.Models {
		model := ModelDTO{
			ID:             int64(m.ID),
			Name:           m.Name,
			Price:          m.Price,
			Img:            m.Image,
			AvailableSizes: make([]SizeStockDTO, 0, len(m.AvailableSizes)),
		}
		for _, s := range m.AvailableSizes {
			model.AvailableSizes = append(model.AvailableSizes, SizeStockDTO{SizeID: int64(s.SizeID), Qty: s.Quantity})
		}
		resp.Models = append(resp.Models, model)
	}
	for _, s := range c.Sizes {
		resp.Sizes = append(resp.Sizes, SizeDTO{ID: int64(s.ID)})
	}
	return resp
}
