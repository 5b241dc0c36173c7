package service

import (
	"context"

	"StockML/internal/domain/models"
)

// Trainer fits a regression model on a dataset and returns it serialized.
type Trainer interface {
	Fit(ctx context.Context, ds models.Dataset) (models.ModelArtifact, error)
	Name() string
}
