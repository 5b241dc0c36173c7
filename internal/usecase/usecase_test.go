package usecase

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockML/internal/domain/models"
	domrepo "StockML/internal/domain/repository"
	"StockML/internal/repository"
	"StockML/internal/services/features"
	"StockML/internal/services/training"
	"StockML/pkg/frame"
)

type frameSource struct {
	f   *frame.Frame
	err error
}

func (s frameSource) Load(context.Context) (*frame.Frame, error) { return s.f, s.err }
func (s frameSource) Describe() string { return "test" }

type recMetrics struct {
	rows    map[string]int
	missing map[string]int
	errors  []string
}

func newRecMetrics() *recMetrics {
	return &recMetrics{rows: map[string]int{}, missing: map[string]int{}}
}

func (m *recMetrics) RecordRows(step string, n int) { m.rows[step] = n }
func (m *recMetrics) RecordMissing(col string, n int) { m.missing[col] = n }
func (m *recMetrics) RecordError(kind string) { m.errors = append(m.errors, kind) }
func (m *recMetrics) RecordLatency(string, float64) {}
func (m *recMetrics) RecordAssetRegistered(string, string) {}

// dailyFrame builds n trading days with a gently trending close.
func dailyFrame(t *testing.T, n int) *frame.Frame {
	t.Helper()
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	stamps := make([]string, n)
	closes := make([]float64, n)
	adjusted := make([]float64, n)
	volume := make([]float64, n)
	for i := 0; i < n; i++ {
		stamps[i] = day.AddDate(0, 0, i).Format("2006-01-02")
		closes[i] = 100 + float64(i%7) + float64(i)/10
		adjusted[i] = closes[i]
		volume[i] = float64(1000 + i)
	}
	f, err := frame.New(
		frame.NewText("timestamp", stamps),
		frame.NewFloat("open", closes),
		frame.NewFloat("close", closes),
		frame.NewFloat("adjusted_close", adjusted),
		frame.NewFloat("volume", volume),
	)
	require.NoError(t, err)
	return f
}

func newPreparer(t *testing.T, src domrepo.DataSource, store domrepo.ArtifactStore, m domrepo.Metrics) *DataPreparer {
	return NewDataPreparer(src, store, features.NewExtractor(), m, nil, PrepareConfig{
		OutputDir:   t.TempDir(),
		DropColumns: []string{"adjusted_close"},
		AssetName:   "stock-data",
		Description: "Dataset to train a model on the IBM stock data.",
		Tags:        map[string]string{"source_type": "web", "source": "AlphaVantage"},
	})
}

func newStore(t *testing.T) *repository.LocalArtifactStore {
	s, err := repository.NewLocalArtifactStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestDataPreparerRegistersDataset(t *testing.T) {
	store := newStore(t)
	m := newRecMetrics()
	p := newPreparer(t, frameSource{f: dailyFrame(t, 10)}, store, m)

	v, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stock-data", v.Name)
	assert.Equal(t, "1", v.Version)
	assert.Equal(t, models.AssetTypeURIFile, v.Type)
	assert.Equal(t, "AlphaVantage", v.Tags["source"])

	rc, err := store.Open(context.Background(), v)
	require.NoError(t, err)
	defer rc.Close()
	got, err := frame.ReadCSV(rc)
	require.NoError(t, err)

	assert.Equal(t, append([]string{"open", "close", "volume"}, features.DerivedColumns()...), got.Names())
	assert.Equal(t, 10, got.Len())

	// forward fill closes the trailing gap but not the leading window
	shifted, _ := got.Series("close_shifted")
	assert.False(t, shifted.IsMissing(9))
	r3, _ := got.Series("rolling_3_mean")
	assert.True(t, r3.IsMissing(0))
	assert.False(t, r3.IsMissing(3))

	assert.Equal(t, 10, m.rows["prepare"])
	assert.Equal(t, 3, m.missing["rolling_3_mean"])
	assert.Empty(t, m.errors)
}

func TestDataPreparerMissingDropColumn(t *testing.T) {
	store := newStore(t)
	f, err := dailyFrame(t, 5).Drop("adjusted_close")
	require.NoError(t, err)
	m := newRecMetrics()

	_, err = newPreparer(t, frameSource{f: f}, store, m).Run(context.Background())
	require.ErrorIs(t, err, frame.ErrColumnNotFound)
	assert.Equal(t, []string{"schema"}, m.errors)

	_, err = store.Latest(context.Background(), "stock-data")
	assert.ErrorIs(t, err, domrepo.ErrAssetNotFound, "nothing registered on failure")
}

func TestDataPreparerParseError(t *testing.T) {
	f, err := frame.New(
		frame.NewText("timestamp", []string{"2023-01-02", "soon"}),
		frame.NewFloat("close", []float64{1, 2}),
		frame.NewFloat("adjusted_close", []float64{1, 2}),
	)
	require.NoError(t, err)
	m := newRecMetrics()

	_, err = newPreparer(t, frameSource{f: f}, newStore(t), m).Run(context.Background())
	assert.ErrorIs(t, err, features.ErrParse)
	assert.Equal(t, []string{"parse"}, m.errors)
}

func TestDataPreparerLoadError(t *testing.T) {
	m := newRecMetrics()
	_, err := newPreparer(t, frameSource{err: errors.New("offline")}, newStore(t), m).Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"load"}, m.errors)
}

func smallParams() training.Params {
	p := training.DefaultParams()
	p.Rounds = 5
	p.MinChildSamples = 2
	return p
}

func newTrainer(t *testing.T, store domrepo.ArtifactStore, m domrepo.Metrics, input string) *ModelTrainer {
	tr := NewModelTrainer(store, training.NewNativeTrainer(smallParams()), m, nil, TrainConfig{
		InputPath:   input,
		DataAsset:   "stock-data",
		WorkDir:     t.TempDir(),
		ModelFile:   "ibm_model.json",
		AssetName:   "IBM-Model",
		Description: "Model created from local file.",
		Target:      "close_shifted",
		Exclude:     []string{"close"},
	})
	tr.SetClock(func() time.Time { return time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC) })
	return tr
}

func TestModelTrainerUsesLatestDataAsset(t *testing.T) {
	store := newStore(t)
	_, err := newPreparer(t, frameSource{f: dailyFrame(t, 40)}, store, nil).Run(context.Background())
	require.NoError(t, err)

	m := newRecMetrics()
	v, err := newTrainer(t, store, m, "").Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "IBM-Model", v.Name)
	assert.Equal(t, "20240309", v.Version)
	assert.Equal(t, models.AssetTypeCustomModel, v.Type)
	assert.Equal(t, training.FormatBoosterJSON, v.Tags["format"])
	assert.Equal(t, 40, m.rows["train"])

	rc, err := store.Open(context.Background(), v)
	require.NoError(t, err)
	defer rc.Close()
	payload, err := io.ReadAll(rc)
	require.NoError(t, err)
	b, err := training.LoadBooster(payload)
	require.NoError(t, err)
	assert.NotContains(t, b.Features, "close")
	assert.NotContains(t, b.Features, "close_shifted")
	assert.Contains(t, b.Features, "rolling_3_mean")
}

func TestModelTrainerSameDayReplacesVersion(t *testing.T) {
	store := newStore(t)
	_, err := newPreparer(t, frameSource{f: dailyFrame(t, 30)}, store, nil).Run(context.Background())
	require.NoError(t, err)

	tr := newTrainer(t, store, nil, "")
	_, err = tr.Run(context.Background())
	require.NoError(t, err)
	_, err = tr.Run(context.Background())
	require.NoError(t, err)

	vs, err := store.List(context.Background(), "IBM-Model")
	require.NoError(t, err)
	assert.Len(t, vs, 1)
}

func TestModelTrainerExplicitInputDir(t *testing.T) {
	dir := t.TempDir()
	p := newPreparer(t, frameSource{f: dailyFrame(t, 30)}, newStore(t), nil).WithOutputDir(dir)
	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "stock-data.csv"))

	store := newStore(t)
	v, err := newTrainer(t, store, nil, dir).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20240309", v.Version)
}

func TestModelTrainerNoData(t *testing.T) {
	m := newRecMetrics()
	_, err := newTrainer(t, newStore(t), m, "").Run(context.Background())
	assert.ErrorIs(t, err, domrepo.ErrAssetNotFound)
	assert.Equal(t, []string{"load"}, m.errors)
}

func TestModelTrainerMissingFile(t *testing.T) {
	_, err := newTrainer(t, newStore(t), nil, filepath.Join(t.TempDir(), "nope.csv")).Run(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type versionTrainerFunc func(ctx context.Context, v models.AssetVersion) (models.AssetVersion, error)

func (f versionTrainerFunc) TrainVersion(ctx context.Context, v models.AssetVersion) (models.AssetVersion, error) {
	return f(ctx, v)
}

func TestAssetEventsHandler(t *testing.T) {
	var trained []string
	h := NewAssetEventsHandler("stock-data", versionTrainerFunc(func(_ context.Context, v models.AssetVersion) (models.AssetVersion, error) {
		trained = append(trained, v.Version)
		return models.AssetVersion{Name: "IBM-Model", Version: "20240309"}, nil
	}), nil, nil)

	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, nil, []byte(`{"asset":{"name":"stock-data","version":"3"}}`)))
	require.NoError(t, h.Handle(ctx, nil, []byte(`{"asset":{"name":"IBM-Model","version":"20240309"}}`)))
	require.NoError(t, h.Handle(ctx, nil, []byte(`not json`)))

	assert.Equal(t, []string{"3"}, trained)
}

func TestAssetEventsHandlerReturnsTrainingError(t *testing.T) {
	h := NewAssetEventsHandler("stock-data", versionTrainerFunc(func(context.Context, models.AssetVersion) (models.AssetVersion, error) {
		return models.AssetVersion{}, errors.New("fit failed")
	}), nil, nil)

	err := h.Handle(context.Background(), nil, []byte(`{"asset":{"name":"stock-data","version":"1"}}`))
	assert.Error(t, err)
}

func TestAssetsUseCaseListVersions(t *testing.T) {
	store := newStore(t)
	p := newPreparer(t, frameSource{f: dailyFrame(t, 5)}, store, nil)
	for i := 0; i < 3; i++ {
		_, err := p.Run(context.Background())
		require.NoError(t, err)
	}

	uc := NewAssetsUseCase(store)
	res, err := uc.ListVersions(context.Background(), ListVersionsParams{Name: "stock-data", Limit: 2, Newest: true})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Versions, 2)
	assert.Equal(t, "3", res.Versions[0].Version)
	assert.Equal(t, "2", res.Versions[1].Version)

	_, err = uc.ListVersions(context.Background(), ListVersionsParams{})
	assert.Error(t, err)
}
