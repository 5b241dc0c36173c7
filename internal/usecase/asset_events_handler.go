package usecase

import (
	"context"
	"encoding/json"
	"time"

	"StockML/internal/domain/models"
	domrepo "StockML/internal/domain/repository"
	applogger "StockML/pkg/logger"
)

type versionTrainer interface {
	TrainVersion(ctx context.Context, v models.AssetVersion) (models.AssetVersion, error)
}

// AssetEventsHandler retrains whenever a new version of the data asset is
// announced on the registry topic.
type AssetEventsHandler struct {
	dataAsset string
	trainer   versionTrainer
	metrics   domrepo.Metrics
	l         *applogger.Logger
}

func NewAssetEventsHandler(dataAsset string, trainer versionTrainer, metrics domrepo.Metrics, l *applogger.Logger) *AssetEventsHandler {
	if l == nil {
		l = applogger.NewNop()
	}
	return &AssetEventsHandler{dataAsset: dataAsset, trainer: trainer, metrics: metrics, l: l}
}

// Handle matches pkg/kafka.HandlerFunc. Undecodable events are dropped;
// training failures are returned so the consumer retries them.
func (h *AssetEventsHandler) Handle(ctx context.Context, _, value []byte) error {
	var ev models.AssetRegistered
	if err := json.Unmarshal(value, &ev); err != nil {
		h.l.Warn("undecodable asset event", applogger.Error(err))
		if h.metrics != nil {
			h.metrics.RecordError("consumer_unmarshal")
		}
		return nil
	}
	if ev.Asset.Name != h.dataAsset {
		return nil
	}
	if h.metrics != nil && !ev.OccurredAt.IsZero() {
		h.metrics.RecordLatency("event_lag", time.Since(ev.OccurredAt).Seconds())
	}

	h.l.Info("retraining on new data version",
		applogger.String("asset", ev.Asset.Name),
		applogger.String("version", ev.Asset.Version),
	)
	model, err := h.trainer.TrainVersion(ctx, ev.Asset)
	if err != nil {
		return err
	}
	h.l.Info("retrained model",
		applogger.String("model", model.Name),
		applogger.String("version", model.Version),
		applogger.String("data_version", ev.Asset.Version),
	)
	return nil
}
