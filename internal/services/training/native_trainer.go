package training

import (
	"context"
	"fmt"
	"math"
	"time"

	"StockML/internal/domain/models"
	domsvc "StockML/internal/domain/service"
	applogger "StockML/pkg/logger"
)

// FormatBoosterJSON tags payloads produced by NativeTrainer.
const FormatBoosterJSON = "gbdt-json"

// NativeTrainer fits a Booster in-process.
type NativeTrainer struct {
	params Params
	l      *applogger.Logger
}

func NewNativeTrainer(p Params) *NativeTrainer {
	return &NativeTrainer{params: p}
}

// SetLogger injects a structured logger.
func (t *NativeTrainer) SetLogger(l *applogger.Logger) { t.l = l }

func (t *NativeTrainer) Name() string { return "native" }

func (t *NativeTrainer) Fit(ctx context.Context, ds models.Dataset) (models.ModelArtifact, error) {
	var out models.ModelArtifact
	start := time.Now()
	b, err := Fit(ctx, ds.Features, ds.X, ds.Y, t.params)
	if err != nil {
		return out, fmt.Errorf("fit booster: %w", err)
	}
	payload, err := b.Marshal()
	if err != nil {
		return out, fmt.Errorf("marshal booster: %w", err)
	}
	if t.l != nil {
		t.l.Info("booster trained",
			applogger.Int("rows", ds.Rows()),
			applogger.Int("features", len(ds.Features)),
			applogger.Int("trees", len(b.Trees)),
			applogger.Float64("train_rmse", rmse(b, ds)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	out.Format = FormatBoosterJSON
	out.Features = b.Features
	out.Payload = payload
	return out, nil
}

func rmse(b *Booster, ds models.Dataset) float64 {
	if ds.Rows() == 0 {
		return 0
	}
	sum := 0.0
	for i, row := range ds.X {
		d := b.Predict(row) - ds.Y[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(ds.Rows()))
}

var _ domsvc.Trainer = (*NativeTrainer)(nil)
