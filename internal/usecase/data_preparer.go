package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"StockML/internal/domain/models"
	domrepo "StockML/internal/domain/repository"
	"StockML/internal/services/features"
	"StockML/pkg/frame"
	applogger "StockML/pkg/logger"
)

// PrepareConfig names the outputs of the preparation step.
type PrepareConfig struct {
	OutputDir   string
	FileName    string
	DropColumns []string
	AssetName   string
	Description string
	Tags        map[string]string
}

// DataPreparer turns the raw daily table into the training dataset and
// registers it as a data asset.
type DataPreparer struct {
	source    domrepo.DataSource
	store     domrepo.ArtifactStore
	extractor *features.Extractor
	metrics   domrepo.Metrics
	l         *applogger.Logger
	cfg       PrepareConfig
}

func NewDataPreparer(
	source domrepo.DataSource,
	store domrepo.ArtifactStore,
	extractor *features.Extractor,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg PrepareConfig,
) *DataPreparer {
	if l == nil {
		l = applogger.NewNop()
	}
	if cfg.FileName == "" {
		cfg.FileName = "stock-data.csv"
	}
	return &DataPreparer{source: source, store: store, extractor: extractor, metrics: metrics, l: l, cfg: cfg}
}

// WithOutputDir returns a copy writing into dir.
func (p *DataPreparer) WithOutputDir(dir string) *DataPreparer {
	cp := *p
	cp.cfg.OutputDir = dir
	return &cp
}

// Run loads, transforms, writes and registers the dataset. Nothing is
// registered unless every earlier step succeeded.
func (p *DataPreparer) Run(ctx context.Context) (models.AssetVersion, error) {
	start := time.Now()
	var out models.AssetVersion

	raw, err := p.source.Load(ctx)
	if err != nil {
		p.fail("load")
		return out, fmt.Errorf("load %s: %w", p.source.Describe(), err)
	}
	p.l.Info("raw data loaded",
		applogger.String("source", p.source.Describe()),
		applogger.Int("rows", raw.Len()),
		applogger.Strings("columns", raw.Names()),
	)
	p.record(func(m domrepo.Metrics) { m.RecordRows("load", raw.Len()) })

	if len(p.cfg.DropColumns) > 0 {
		raw, err = raw.Drop(p.cfg.DropColumns...)
		if err != nil {
			p.fail("schema")
			return out, fmt.Errorf("drop columns: %w", err)
		}
	}

	tstart := time.Now()
	prepared, err := p.extractor.Transform(raw)
	if err != nil {
		switch {
		case errors.Is(err, features.ErrSchema):
			p.fail("schema")
		case errors.Is(err, features.ErrParse):
			p.fail("parse")
		default:
			p.fail("transform")
		}
		return out, fmt.Errorf("transform: %w", err)
	}
	p.record(func(m domrepo.Metrics) { m.RecordLatency("transform", time.Since(tstart).Seconds()) })

	for col, n := range features.CountMissing(prepared) {
		p.record(func(m domrepo.Metrics) { m.RecordMissing(col, n) })
	}
	prepared = prepared.ForwardFill()

	path, err := p.write(prepared)
	if err != nil {
		p.fail("write")
		return out, err
	}
	p.record(func(m domrepo.Metrics) { m.RecordRows("prepare", prepared.Len()) })

	out, err = p.store.Register(ctx, models.Asset{
		Name:        p.cfg.AssetName,
		Type:        models.AssetTypeURIFile,
		Description: p.cfg.Description,
		Tags:        p.cfg.Tags,
		Path:        path,
	})
	if err != nil {
		p.fail("register")
		return out, fmt.Errorf("register %s: %w", p.cfg.AssetName, err)
	}

	p.record(func(m domrepo.Metrics) { m.RecordLatency("prepare", time.Since(start).Seconds()) })
	p.l.Info("dataset prepared",
		applogger.String("path", path),
		applogger.String("asset", out.Name),
		applogger.String("version", out.Version),
		applogger.Int("rows", prepared.Len()),
		applogger.Any("tags", p.cfg.Tags),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// write stores the frame as CSV, replacing any previous file atomically.
func (p *DataPreparer) write(f *frame.Frame) (string, error) {
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(p.cfg.OutputDir, p.cfg.FileName)
	tmp, err := os.CreateTemp(p.cfg.OutputDir, ".stock-data-*.csv")
	if err != nil {
		return "", fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := frame.WriteCSV(tmp, f); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("publish output: %w", err)
	}
	return path, nil
}

func (p *DataPreparer) fail(kind string) {
	p.record(func(m domrepo.Metrics) { m.RecordError(kind) })
}

func (p *DataPreparer) record(fn func(domrepo.Metrics)) {
	if p.metrics != nil {
		fn(p.metrics)
	}
}
