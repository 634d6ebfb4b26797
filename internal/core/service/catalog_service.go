package service

import (
	"context"
	"fmt"

	"github.com/rl1809/obesho/internal/core/domain"
	"github.com/rl1809/obesho/internal/port"
)

// CatalogService is a read-only projection of models, sizes and current stock.
type CatalogService struct {
	repo port.CatalogRepository
}

func NewCatalogService(repo port.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) Catalog(ctx context.Context) (domain.Catalog, error) {
	models, err := s.repo.ListModels(ctx)
	if err != nil {
		return domain.Catalog{}, domain.Persistence(fmt.Errorf("list models: %w", err))
	}
	sizes, err := s.repo.ListSizes(ctx)
	if err != nil {
		return domain.Catalog{}, domain.Persistence(fmt.Errorf("list sizes: %w", err))
	}
	return domain.Catalog{Models: models, Sizes: sizes}, nil
}
