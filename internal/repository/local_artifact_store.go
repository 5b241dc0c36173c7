package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"StockML/internal/domain/models"
	domrepo "StockML/internal/domain/repository"
	applogger "StockML/pkg/logger"
)

const manifestFile = "manifest.json"

// LocalArtifactStore keeps assets on disk as <root>/<name>/<version>/ with
// the payload file and a manifest.json describing it.
type LocalArtifactStore struct {
	root string
	mu   sync.Mutex
	l    *applogger.Logger
}

// NewLocalArtifactStore creates root if needed.
func NewLocalArtifactStore(root string) (*LocalArtifactStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("registry root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("registry root: %w", err)
	}
	return &LocalArtifactStore{root: abs, l: applogger.NewNop()}, nil
}

// SetLogger injects a structured logger.
func (s *LocalArtifactStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *LocalArtifactStore) Register(ctx context.Context, a models.Asset) (models.AssetVersion, error) {
	data, err := readPayload(a)
	if err != nil {
		return models.AssetVersion{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.AssetVersion{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	version := a.Version
	if version == "" {
		existing, err := s.versions(a.Name)
		if err != nil {
			return models.AssetVersion{}, err
		}
		version = models.NextVersion(existing)
	}

	nameDir := filepath.Join(s.root, a.Name)
	if err := os.MkdirAll(nameDir, 0o755); err != nil {
		return models.AssetVersion{}, fmt.Errorf("create asset dir: %w", err)
	}
	// stage in a hidden dir so readers never see a half-written version
	tmp, err := os.MkdirTemp(nameDir, ".staging-")
	if err != nil {
		return models.AssetVersion{}, fmt.Errorf("stage asset: %w", err)
	}
	defer os.RemoveAll(tmp)

	final := filepath.Join(nameDir, version)
	fileName := filepath.Base(a.Path)
	uri := (&url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(final, fileName))}).String()
	v := describe(a, version, data, uri, time.Now())

	if err := os.WriteFile(filepath.Join(tmp, fileName), data, 0o644); err != nil {
		return models.AssetVersion{}, fmt.Errorf("write payload: %w", err)
	}
	manifest, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return models.AssetVersion{}, fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, manifestFile), manifest, 0o644); err != nil {
		return models.AssetVersion{}, fmt.Errorf("write manifest: %w", err)
	}

	if err := os.RemoveAll(final); err != nil {
		return models.AssetVersion{}, fmt.Errorf("replace version: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return models.AssetVersion{}, fmt.Errorf("publish version: %w", err)
	}

	s.l.Info("asset registered",
		applogger.String("name", v.Name),
		applogger.String("version", v.Version),
		applogger.Int64("size", v.Size),
		applogger.String("uri", v.URI),
	)
	return v, nil
}

func (s *LocalArtifactStore) Get(_ context.Context, name, version string) (models.AssetVersion, error) {
	return s.readManifest(name, version)
}

func (s *LocalArtifactStore) Latest(ctx context.Context, name string) (models.AssetVersion, error) {
	vs, err := s.List(ctx, name)
	if err != nil {
		return models.AssetVersion{}, err
	}
	return latestOf(name, vs)
}

func (s *LocalArtifactStore) List(_ context.Context, name string) ([]models.AssetVersion, error) {
	versions, err := s.versions(name)
	if err != nil {
		return nil, err
	}
	out := make([]models.AssetVersion, 0, len(versions))
	for _, version := range versions {
		v, err := s.readManifest(name, version)
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

func (s *LocalArtifactStore) Open(_ context.Context, v models.AssetVersion) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, v.Name, v.Version, v.FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", v.Name, v.Version, domrepo.ErrAssetNotFound)
		}
		return nil, fmt.Errorf("open payload: %w", err)
	}
	return f, nil
}

func (s *LocalArtifactStore) versions(name string) ([]string, error) {
	if !models.ValidName(name) {
		return nil, nil
	}
	entries, err := os.ReadDir(filepath.Join(s.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list versions: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func (s *LocalArtifactStore) readManifest(name, version string) (models.AssetVersion, error) {
	var v models.AssetVersion
	if !models.ValidName(name) || !models.ValidName(version) {
		return v, fmt.Errorf("%s/%s: %w", name, version, domrepo.ErrAssetNotFound)
	}
	b, err := os.ReadFile(filepath.Join(s.root, name, version, manifestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return v, fmt.Errorf("%s/%s: %w", name, version, domrepo.ErrAssetNotFound)
		}
		return v, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decode manifest %s/%s: %w", name, version, err)
	}
	return v, nil
}

var _ domrepo.ArtifactStore = (*LocalArtifactStore)(nil)
