package repository

import (
	"context"
	"time"

	"StockML/internal/domain/models"
	domrepo "StockML/internal/domain/repository"
	applogger "StockML/pkg/logger"
)

// NotifyingStore publishes an AssetRegistered event after every successful
// registration on the wrapped store. Publishing is best effort: a failed
// publish is logged and does not undo the registration.
type NotifyingStore struct {
	domrepo.ArtifactStore
	pub     domrepo.EventPublisher
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewNotifyingStore(store domrepo.ArtifactStore, pub domrepo.EventPublisher, m domrepo.Metrics, l *applogger.Logger) *NotifyingStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &NotifyingStore{ArtifactStore: store, pub: pub, metrics: m, l: l}
}

func (s *NotifyingStore) Register(ctx context.Context, a models.Asset) (models.AssetVersion, error) {
	v, err := s.ArtifactStore.Register(ctx, a)
	if err != nil {
		return v, err
	}
	if s.metrics != nil {
		s.metrics.RecordAssetRegistered(v.Name, string(v.Type))
	}
	if s.pub == nil {
		return v, nil
	}
	ev := models.AssetRegistered{Asset: v, OccurredAt: time.Now().UTC()}
	if err := s.pub.PublishAssetRegistered(ctx, ev); err != nil {
		s.l.Warn("publish asset event failed",
			applogger.String("name", v.Name),
			applogger.String("version", v.Version),
			applogger.Error(err),
		)
		if s.metrics != nil {
			s.metrics.RecordError("publish")
		}
	}
	return v, nil
}
