package usecase

import (
	"context"
	"fmt"

	"StockML/internal/domain/models"
	domrepo "StockML/internal/domain/repository"
)

// AssetsUseCase provides read access to the registry.
type AssetsUseCase struct {
	store domrepo.ArtifactStore
}

func NewAssetsUseCase(store domrepo.ArtifactStore) *AssetsUseCase {
	return &AssetsUseCase{store: store}
}

type ListVersionsParams struct {
	Name   string
	Limit  int
	Newest bool
}

type ListVersionsResult struct {
	Name     string
	Total    int
	Versions []models.AssetVersion
}

// ListVersions returns versions of an asset, oldest first unless Newest is
// set. Limit keeps the first Limit entries of that order.
func (uc *AssetsUseCase) ListVersions(ctx context.Context, p ListVersionsParams) (*ListVersionsResult, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("name required")
	}
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Limit > 1000 {
		p.Limit = 1000
	}

	vs, err := uc.store.List(ctx, p.Name)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	total := len(vs)
	if p.Newest {
		for i, j := 0, len(vs)-1; i < j; i, j = i+1, j-1 {
			vs[i], vs[j] = vs[j], vs[i]
		}
	}
	if len(vs) > p.Limit {
		vs = vs[:p.Limit]
	}

	return &ListVersionsResult{
		Name:     p.Name,
		Total:    total,
		Versions: vs,
	}, nil
}

func (uc *AssetsUseCase) Latest(ctx context.Context, name string) (models.AssetVersion, error) {
	return uc.store.Latest(ctx, name)
}

func (uc *AssetsUseCase) Get(ctx context.Context, name, version string) (models.AssetVersion, error) {
	return uc.store.Get(ctx, name, version)
}
