package repository

import (
	"context"
	"errors"
	"io"

	"StockML/internal/domain/models"
	"StockML/pkg/frame"
)

// ErrAssetNotFound is returned when a name or version is not registered.
var ErrAssetNotFound = errors.New("asset not found")

// ArtifactStore is a versioned registry for data and model assets.
type ArtifactStore interface {
	// Register stores the payload at asset.Path. Registering an existing
	// version replaces it.
	Register(ctx context.Context, asset models.Asset) (models.AssetVersion, error)
	Get(ctx context.Context, name, version string) (models.AssetVersion, error)
	Latest(ctx context.Context, name string) (models.AssetVersion, error)
	List(ctx context.Context, name string) ([]models.AssetVersion, error)
	Open(ctx context.Context, v models.AssetVersion) (io.ReadCloser, error)
}

// DataSource supplies the raw daily table in chronological order.
type DataSource interface {
	Load(ctx context.Context) (*frame.Frame, error)
	Describe() string
}

// EventPublisher announces registry changes.
type EventPublisher interface {
	PublishAssetRegistered(ctx context.Context, ev models.AssetRegistered) error
	Close() error
}

type Metrics interface {
	RecordRows(step string, rows int)
	RecordMissing(column string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordAssetRegistered(name, assetType string)
}
