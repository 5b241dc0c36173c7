package training

import (
	"math"
	"testing"

	"StockML/pkg/frame"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetFromFrame(t *testing.T) {
	nan := math.NaN()
	f, err := frame.New(
		frame.NewFloat("Unnamed: 0", []float64{0, 1, 2}),
		frame.NewText("symbol", []string{"IBM", "IBM", "IBM"}),
		frame.NewFloat("open", []float64{1, 2, 3}),
		frame.NewFloat("close", []float64{1.5, 2.5, 3.5}),
		frame.NewFloat("ewma", []float64{nan, 1.5, 2}),
		frame.NewInt("weekday", []float64{0, 1, 2}),
		frame.NewFloat("close_shifted", []float64{2.5, 3.5, nan}),
	)
	require.NoError(t, err)

	ds, err := DatasetFromFrame(f, "close_shifted", []string{"close"})
	require.NoError(t, err)

	assert.Equal(t, []string{"open", "ewma", "weekday"}, ds.Features)
	assert.Equal(t, 2, ds.Rows())
	assert.Equal(t, []float64{2.5, 3.5}, ds.Y)
	assert.True(t, math.IsNaN(ds.X[0][1]))
	assert.Equal(t, []float64{2, 1.5, 1}, ds.X[1])
}

func TestDatasetFromFrameMissingTarget(t *testing.T) {
	f, err := frame.New(frame.NewFloat("open", []float64{1}))
	require.NoError(t, err)

	_, err = DatasetFromFrame(f, "close_shifted", nil)
	assert.ErrorIs(t, err, frame.ErrColumnNotFound)
}

func TestDatasetFromFrameNoFeatures(t *testing.T) {
	f, err := frame.New(
		frame.NewFloat("close", []float64{1}),
		frame.NewFloat("close_shifted", []float64{2}),
	)
	require.NoError(t, err)

	_, err = DatasetFromFrame(f, "close_shifted", []string{"close"})
	assert.Error(t, err)
}
