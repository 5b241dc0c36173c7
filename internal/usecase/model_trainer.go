package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"StockML/internal/domain/models"
	domrepo "StockML/internal/domain/repository"
	domsvc "StockML/internal/domain/service"
	"StockML/internal/services/training"
	"StockML/pkg/frame"
	applogger "StockML/pkg/logger"
)

// TrainConfig names the inputs and outputs of the training step.
type TrainConfig struct {
	InputPath     string
	DataAsset     string
	DataFile      string
	WorkDir       string
	ModelFile     string
	AssetName     string
	Description   string
	Target        string
	Exclude       []string
	VersionLayout string
}

// ModelTrainer fits a model on the prepared dataset and registers it with
// the run date as version.
type ModelTrainer struct {
	store   domrepo.ArtifactStore
	trainer domsvc.Trainer
	metrics domrepo.Metrics
	l       *applogger.Logger
	cfg     TrainConfig
	now     func() time.Time
}

func NewModelTrainer(
	store domrepo.ArtifactStore,
	trainer domsvc.Trainer,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg TrainConfig,
) *ModelTrainer {
	if l == nil {
		l = applogger.NewNop()
	}
	if cfg.VersionLayout == "" {
		cfg.VersionLayout = "20060102"
	}
	if cfg.DataFile == "" {
		cfg.DataFile = "stock-data.csv"
	}
	return &ModelTrainer{store: store, trainer: trainer, metrics: metrics, l: l, cfg: cfg, now: time.Now}
}

// SetClock overrides the clock used for model versions.
func (t *ModelTrainer) SetClock(now func() time.Time) { t.now = now }

// Run trains on the configured input, or on the latest data asset when no
// input path is configured.
func (t *ModelTrainer) Run(ctx context.Context) (models.AssetVersion, error) {
	return t.Train(ctx, t.cfg.InputPath)
}

// Train trains on the CSV at input. A directory input is read as
// <input>/stock-data.csv. An empty input resolves the latest data asset.
func (t *ModelTrainer) Train(ctx context.Context, input string) (models.AssetVersion, error) {
	f, origin, err := t.load(ctx, input)
	if err != nil {
		t.fail("load")
		return models.AssetVersion{}, err
	}
	return t.fit(ctx, f, origin)
}

// TrainVersion trains on a specific registered data version.
func (t *ModelTrainer) TrainVersion(ctx context.Context, v models.AssetVersion) (models.AssetVersion, error) {
	f, origin, err := t.loadVersion(ctx, v)
	if err != nil {
		t.fail("load")
		return models.AssetVersion{}, err
	}
	return t.fit(ctx, f, origin)
}

func (t *ModelTrainer) fit(ctx context.Context, f *frame.Frame, origin string) (models.AssetVersion, error) {
	start := time.Now()
	var out models.AssetVersion

	ds, err := training.DatasetFromFrame(f, t.cfg.Target, t.cfg.Exclude)
	if err != nil {
		t.fail("dataset")
		return out, fmt.Errorf("build dataset: %w", err)
	}
	t.l.Info("training dataset ready",
		applogger.String("origin", origin),
		applogger.Int("rows", ds.Rows()),
		applogger.Strings("features", ds.Features),
		applogger.String("trainer", t.trainer.Name()),
	)
	t.record(func(m domrepo.Metrics) { m.RecordRows("train", ds.Rows()) })

	fstart := time.Now()
	artifact, err := t.trainer.Fit(ctx, ds)
	if err != nil {
		t.fail("fit")
		return out, fmt.Errorf("fit: %w", err)
	}
	t.record(func(m domrepo.Metrics) { m.RecordLatency("fit", time.Since(fstart).Seconds()) })

	path, err := t.save(artifact)
	if err != nil {
		t.fail("write")
		return out, err
	}

	out, err = t.store.Register(ctx, models.Asset{
		Name:        t.cfg.AssetName,
		Type:        models.AssetTypeCustomModel,
		Description: t.cfg.Description,
		Tags:        map[string]string{"format": artifact.Format, "trainer": t.trainer.Name()},
		Version:     t.now().Format(t.cfg.VersionLayout),
		Path:        path,
	})
	if err != nil {
		t.fail("register")
		return out, fmt.Errorf("register %s: %w", t.cfg.AssetName, err)
	}

	t.l.Info("model registered",
		applogger.String("asset", out.Name),
		applogger.String("version", out.Version),
		applogger.String("format", artifact.Format),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (t *ModelTrainer) load(ctx context.Context, input string) (*frame.Frame, string, error) {
	if input != "" {
		if st, err := os.Stat(input); err == nil && st.IsDir() {
			input = filepath.Join(input, t.cfg.DataFile)
		}
		fh, err := os.Open(input)
		if err != nil {
			return nil, "", fmt.Errorf("open training data: %w", err)
		}
		defer fh.Close()
		f, err := frame.ReadCSV(fh)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", input, err)
		}
		return f, input, nil
	}

	v, err := t.store.Latest(ctx, t.cfg.DataAsset)
	if err != nil {
		return nil, "", fmt.Errorf("resolve %s: %w", t.cfg.DataAsset, err)
	}
	return t.loadVersion(ctx, v)
}

func (t *ModelTrainer) loadVersion(ctx context.Context, v models.AssetVersion) (*frame.Frame, string, error) {
	rc, err := t.store.Open(ctx, v)
	if err != nil {
		return nil, "", fmt.Errorf("open %s/%s: %w", v.Name, v.Version, err)
	}
	defer rc.Close()
	f, err := frame.ReadCSV(rc)
	if err != nil {
		return nil, "", fmt.Errorf("read %s/%s: %w", v.Name, v.Version, err)
	}
	return f, v.Name + "/" + v.Version, nil
}

func (t *ModelTrainer) save(a models.ModelArtifact) (string, error) {
	if err := os.MkdirAll(t.cfg.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	path := filepath.Join(t.cfg.WorkDir, t.cfg.ModelFile)
	if err := os.WriteFile(path, a.Payload, 0o644); err != nil {
		return "", fmt.Errorf("write model: %w", err)
	}
	return path, nil
}

func (t *ModelTrainer) fail(kind string) {
	t.record(func(m domrepo.Metrics) { m.RecordError(kind) })
}

func (t *ModelTrainer) record(fn func(domrepo.Metrics)) {
	if t.metrics != nil {
		fn(t.metrics)
	}
}
