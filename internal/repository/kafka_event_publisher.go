package repository

import (
	"context"

	"StockML/internal/domain/models"
	domrepo "StockML/internal/domain/repository"
)

// producer is the subset of pkg/kafka.Producer the publisher needs.
type producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaEventPublisher writes registry events as JSON keyed by asset name,
// so all versions of one asset stay ordered on a partition.
type KafkaEventPublisher struct {
	p     producer
	topic string
}

func NewKafkaEventPublisher(p producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{p: p, topic: topic}
}

func (k *KafkaEventPublisher) PublishAssetRegistered(ctx context.Context, ev models.AssetRegistered) error {
	return k.p.Publish(ctx, k.topic, []byte(ev.Asset.Name), ev)
}

func (k *KafkaEventPublisher) Close() error { return k.p.Close() }

var _ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
