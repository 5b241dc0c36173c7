package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"StockML/internal/domain/models"
	domrepo "StockML/internal/domain/repository"
	pkgch "StockML/pkg/clickhouse"
	applogger "StockML/pkg/logger"
)

// CHArtifactStore implements ArtifactStore on a ReplacingMergeTree table.
// Re-registering a version inserts a newer row; reads use FINAL so only
// the latest row per (name, version) is visible.
type CHArtifactStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHArtifactStore(ch *pkgch.Client, table string) *CHArtifactStore {
	if table == "" {
		table = "assets"
	}
	return &CHArtifactStore{db: ch.DB(), table: table, l: applogger.NewNop()}
}

// SetLogger injects a structured logger.
func (s *CHArtifactStore) SetLogger(l *applogger.Logger) { s.l = l }

// Schema returns the DDL for the asset table.
func (s *CHArtifactStore) Schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            name        String,
            version     String,
            type        LowCardinality(String),
            description String,
            tags        String,
            file_name   String,
            size        UInt64,
            sha256      String,
            payload     String,
            created_at  DateTime64(3, 'UTC'),
            updated_at  DateTime64(3, 'UTC')
        ) ENGINE = ReplacingMergeTree(updated_at)
        ORDER BY (name, version)
    `, s.table)}
}

func (s *CHArtifactStore) Register(ctx context.Context, a models.Asset) (models.AssetVersion, error) {
	start := time.Now()
	data, err := readPayload(a)
	if err != nil {
		return models.AssetVersion{}, err
	}

	version := a.Version
	if version == "" {
		existing, err := s.versionNames(ctx, a.Name)
		if err != nil {
			return models.AssetVersion{}, err
		}
		version = models.NextVersion(existing)
	}

	now := time.Now().UTC()
	v := describe(a, version, data, s.uri(a.Name, version), now)
	tags, err := json.Marshal(v.Tags)
	if err != nil {
		return models.AssetVersion{}, fmt.Errorf("encode tags: %w", err)
	}

	q := fmt.Sprintf(`INSERT INTO %s (name, version, type, description, tags, file_name, size, sha256, payload, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err = s.db.ExecContext(ctx, q,
		v.Name, v.Version, string(v.Type), v.Description, string(tags),
		v.FileName, uint64(v.Size), v.SHA256, string(data), v.CreatedAt, now,
	)
	if err != nil {
		s.l.Error("clickhouse register asset error",
			applogger.String("table", s.table),
			applogger.String("name", v.Name),
			applogger.Error(err),
		)
		return models.AssetVersion{}, fmt.Errorf("insert asset: %w", err)
	}

	s.l.Info("asset registered",
		applogger.String("name", v.Name),
		applogger.String("version", v.Version),
		applogger.Int64("size", v.Size),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return v, nil
}

func (s *CHArtifactStore) Get(ctx context.Context, name, version string) (models.AssetVersion, error) {
	q := fmt.Sprintf(`
        SELECT name, version, type, description, tags, file_name, size, sha256, created_at
        FROM %s FINAL
        WHERE name = ? AND version = ?
    `, s.table)
	vs, err := s.query(ctx, q, name, version)
	if err != nil {
		return models.AssetVersion{}, err
	}
	if len(vs) == 0 {
		return models.AssetVersion{}, fmt.Errorf("%s/%s: %w", name, version, domrepo.ErrAssetNotFound)
	}
	return vs[0], nil
}

func (s *CHArtifactStore) Latest(ctx context.Context, name string) (models.AssetVersion, error) {
	vs, err := s.List(ctx, name)
	if err != nil {
		return models.AssetVersion{}, err
	}
	return latestOf(name, vs)
}

func (s *CHArtifactStore) List(ctx context.Context, name string) ([]models.AssetVersion, error) {
	q := fmt.Sprintf(`
        SELECT name, version, type, description, tags, file_name, size, sha256, created_at
        FROM %s FINAL
        WHERE name = ?
    `, s.table)
	vs, err := s.query(ctx, q, name)
	if err != nil {
		return nil, err
	}
	sortVersions(vs)
	return vs, nil
}

func (s *CHArtifactStore) Open(ctx context.Context, v models.AssetVersion) (io.ReadCloser, error) {
	q := fmt.Sprintf(`SELECT payload FROM %s FINAL WHERE name = ? AND version = ?`, s.table)
	var payload string
	err := s.db.QueryRowContext(ctx, q, v.Name, v.Version).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", v.Name, v.Version, domrepo.ErrAssetNotFound)
		}
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return io.NopCloser(strings.NewReader(payload)), nil
}

func (s *CHArtifactStore) versionNames(ctx context.Context, name string) ([]string, error) {
	q := fmt.Sprintf(`SELECT DISTINCT version FROM %s WHERE name = ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, name)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *CHArtifactStore) query(ctx context.Context, q string, args ...interface{}) ([]models.AssetVersion, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse asset query error",
			applogger.String("table", s.table),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var out []models.AssetVersion
	for rows.Next() {
		var (
			v     models.AssetVersion
			typ   string
			tags  string
			size  uint64
			added time.Time
		)
		if err := rows.Scan(&v.Name, &v.Version, &typ, &v.Description, &tags, &v.FileName, &size, &v.SHA256, &added); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		v.Type = models.AssetType(typ)
		v.Size = int64(size)
		v.CreatedAt = added.UTC()
		v.URI = s.uri(v.Name, v.Version)
		if tags != "" && tags != "null" {
			if err := json.Unmarshal([]byte(tags), &v.Tags); err != nil {
				return nil, fmt.Errorf("decode tags: %w", err)
			}
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHArtifactStore) uri(name, version string) string {
	return fmt.Sprintf("clickhouse://%s/%s/%s", s.table, name, version)
}

var _ domrepo.ArtifactStore = (*CHArtifactStore)(nil)
