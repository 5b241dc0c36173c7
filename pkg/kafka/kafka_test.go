package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	reg := prometheus.NewRegistry()
	p := newProducer(w, "gzip", reg)

	err := p.Publish(context.Background(), "assets", []byte("stock-data"), map[string]string{"version": "3"})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "assets", w.msgs[0].Topic)
	assert.Equal(t, []byte("stock-data"), w.msgs[0].Key)
	assert.JSONEq(t, `{"version":"3"}`, string(w.msgs[0].Value))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.messages.WithLabelValues("assets", "gzip", "ok")))
}

func TestPublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newProducer(w, "gzip", nil)

	err := p.Publish(context.Background(), "assets", nil, "x")
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.messages.WithLabelValues("assets", "gzip", "error")))
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
	done      context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) == 0 {
		r.mu.Unlock()
		r.done()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.pending[0]
	r.pending = r.pending[1:]
	r.mu.Unlock()
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumerRetriesAndCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeReader{
		pending: []kafka.Message{
			{Topic: "assets", Offset: 1, Value: []byte("flaky")},
			{Topic: "assets", Offset: 2, Value: []byte("poison")},
		},
		done: cancel,
	}
	c := newConsumer(ConsumerConfig{Topic: "assets", RetryMax: 2, BackoffMin: time.Millisecond, BackoffMax: time.Millisecond}, r, nil)

	calls := map[string]int{}
	err := c.Run(ctx, func(_ context.Context, _, value []byte) error {
		calls[string(value)]++
		if string(value) == "flaky" && calls["flaky"] < 2 {
			return errors.New("transient")
		}
		if string(value) == "poison" {
			return errors.New("bad payload")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, calls["flaky"])
	assert.Equal(t, 3, calls["poison"])
	assert.Equal(t, []int64{1, 2}, r.committed)
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.LessOrEqual(t, d, 100*time.Millisecond)
		assert.Greater(t, d, time.Duration(0))
	}
}
