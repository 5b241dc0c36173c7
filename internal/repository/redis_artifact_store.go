package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"StockML/internal/domain/models"
	domrepo "StockML/internal/domain/repository"
	"StockML/pkg/cache"
	applogger "StockML/pkg/logger"
)

// RedisArtifactStore keeps asset metadata and payloads in Redis:
//
//	asset:<name>:versions          set of version strings
//	asset:<name>:<version>:meta    AssetVersion JSON
//	asset:<name>:<version>:blob    raw payload
//
// Registration for one name is serialized through a Redis lock so two
// writers cannot hand out the same auto version.
type RedisArtifactStore struct {
	c       cache.Service
	lockTTL time.Duration
	l       *applogger.Logger
}

func NewRedisArtifactStore(c cache.Service, lockTTL time.Duration) *RedisArtifactStore {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &RedisArtifactStore{c: c, lockTTL: lockTTL, l: applogger.NewNop()}
}

// SetLogger injects a structured logger.
func (s *RedisArtifactStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *RedisArtifactStore) Register(ctx context.Context, a models.Asset) (models.AssetVersion, error) {
	data, err := readPayload(a)
	if err != nil {
		return models.AssetVersion{}, err
	}

	var v models.AssetVersion
	err = cache.WithLock(ctx, s.c, "lock:asset:"+a.Name, s.lockTTL, 50*time.Millisecond, func() error {
		version := a.Version
		if version == "" {
			existing, err := s.c.Members(ctx, versionsKey(a.Name))
			if err != nil {
				return fmt.Errorf("list versions: %w", err)
			}
			version = models.NextVersion(existing)
		}
		v = describe(a, version, data, fmt.Sprintf("redis://%s/%s", a.Name, version), time.Now())

		if err := s.c.Set(ctx, blobKey(a.Name, version), data, 0); err != nil {
			return fmt.Errorf("store payload: %w", err)
		}
		if err := s.c.Set(ctx, metaKey(a.Name, version), v, 0); err != nil {
			return fmt.Errorf("store metadata: %w", err)
		}
		if err := s.c.AddMembers(ctx, versionsKey(a.Name), version); err != nil {
			return fmt.Errorf("index version: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.AssetVersion{}, err
	}

	s.l.Info("asset registered",
		applogger.String("name", v.Name),
		applogger.String("version", v.Version),
		applogger.Int64("size", v.Size),
	)
	return v, nil
}

func (s *RedisArtifactStore) Get(ctx context.Context, name, version string) (models.AssetVersion, error) {
	var v models.AssetVersion
	if err := s.c.Get(ctx, metaKey(name, version), &v); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return v, fmt.Errorf("%s/%s: %w", name, version, domrepo.ErrAssetNotFound)
		}
		return v, fmt.Errorf("read metadata: %w", err)
	}
	return v, nil
}

func (s *RedisArtifactStore) Latest(ctx context.Context, name string) (models.AssetVersion, error) {
	vs, err := s.List(ctx, name)
	if err != nil {
		return models.AssetVersion{}, err
	}
	return latestOf(name, vs)
}

func (s *RedisArtifactStore) List(ctx context.Context, name string) ([]models.AssetVersion, error) {
	versions, err := s.c.Members(ctx, versionsKey(name))
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	out := make([]models.AssetVersion, 0, len(versions))
	for _, version := range versions {
		v, err := s.Get(ctx, name, version)
		if err != nil {
			if errors.Is(err, domrepo.ErrAssetNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, v)
	}
	sortVersions(out)
	return out, nil
}

func (s *RedisArtifactStore) Open(ctx context.Context, v models.AssetVersion) (io.ReadCloser, error) {
	var data []byte
	if err := s.c.Get(ctx, blobKey(v.Name, v.Version), &data); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("%s/%s: %w", v.Name, v.Version, domrepo.ErrAssetNotFound)
		}
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func versionsKey(name string) string { return "asset:" + name + ":versions" }
func metaKey(name, version string) string { return "asset:" + name + ":" + version + ":meta" }
func blobKey(name, version string) string { return "asset:" + name + ":" + version + ":blob" }

var _ domrepo.ArtifactStore = (*RedisArtifactStore)(nil)
