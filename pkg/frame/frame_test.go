package frame

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShift(t *testing.T) {
	in := []float64{1, 2, 3, 4}

	lag := Shift(in, 1)
	assert.True(t, math.IsNaN(lag[0]))
	assert.Equal(t, []float64{1, 2, 3}, lag[1:])

	lead := Shift(in, -1)
	assert.Equal(t, []float64{2, 3, 4}, lead[:3])
	assert.True(t, math.IsNaN(lead[3]))

	assert.Equal(t, in, Shift(in, 0))
}

func TestRollingMean(t *testing.T) {
	got := RollingMean([]float64{math.NaN(), 10, 11, 12, 13}, 3)
	for i := 0; i < 3; i++ {
		assert.Truef(t, math.IsNaN(got[i]), "row %d should be missing", i)
	}
	assert.Equal(t, 11.0, got[3])
	assert.Equal(t, 12.0, got[4])
}

func TestRollingMeanGapInsideWindow(t *testing.T) {
	got := RollingMean([]float64{1, 2, math.NaN(), 4, 5, 6}, 2)
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, 1.5, got[1])
	assert.True(t, math.IsNaN(got[2]))
	assert.True(t, math.IsNaN(got[3]))
	assert.Equal(t, 4.5, got[4])
	assert.Equal(t, 5.5, got[5])
}

func TestEWMA(t *testing.T) {
	got := EWMA([]float64{math.NaN(), 10, 11, 12}, 0.5)
	assert.True(t, math.IsNaN(got[0]))
	assert.InDelta(t, 10.0, got[1], 1e-12)
	assert.InDelta(t, 16.0/1.5, got[2], 1e-12)
	assert.InDelta(t, 20.0/1.75, got[3], 1e-12)
}

func TestEWMAMissingInside(t *testing.T) {
	got := EWMA([]float64{1, math.NaN(), 3}, 0.5)
	assert.InDelta(t, 1.0, got[0], 1e-12)
	assert.InDelta(t, 1.0, got[1], 1e-12)
	assert.InDelta(t, 2.6, got[2], 1e-12)
}

func TestFrameWithAndDrop(t *testing.T) {
	f, err := New(
		NewText("timestamp", []string{"2021-03-08", "2021-03-09"}),
		NewFloat("close", []float64{1, 2}),
	)
	require.NoError(t, err)

	g, err := f.With(NewFloat("close", []float64{3, 4}), NewInt("month", []float64{3, 3}))
	require.NoError(t, err)
	assert.Equal(t, []string{"timestamp", "close", "month"}, g.Names())
	assert.Equal(t, []string{"timestamp", "close"}, f.Names(), "receiver must not change")

	c, err := f.Series("close")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, c.Floats())

	h, err := g.Drop("timestamp")
	require.NoError(t, err)
	assert.Equal(t, []string{"close", "month"}, h.Names())

	_, err = g.Drop("adjusted_close")
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, err = g.With(NewFloat("short", []float64{1}))
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New(NewFloat("a", []float64{1}), NewFloat("a", []float64{2}))
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestForwardFill(t *testing.T) {
	f, err := New(
		NewFloat("x", []float64{math.NaN(), 1, math.NaN(), 3}),
		NewText("s", []string{"a", "", "b", ""}),
	)
	require.NoError(t, err)

	g := f.ForwardFill()
	x, _ := g.Series("x")
	xs := x.Floats()
	assert.True(t, math.IsNaN(xs[0]))
	assert.Equal(t, []float64{1, 1, 3}, xs[1:])

	s, _ := g.Series("s")
	assert.Equal(t, []string{"a", "a", "b", "b"}, s.Strings())

	orig, _ := f.Series("x")
	assert.True(t, math.IsNaN(orig.Floats()[2]))
}

func TestReverse(t *testing.T) {
	f, err := New(NewFloat("x", []float64{1, 2, 3}))
	require.NoError(t, err)
	x, _ := f.Reverse().Series("x")
	assert.Equal(t, []float64{3, 2, 1}, x.Floats())
}

func TestCSVRoundTrip(t *testing.T) {
	doc := "timestamp,open,close,volume\n" +
		"2021-03-08,10.5,11,100\n" +
		"2021-03-09,11.5,,200\n"

	f, err := ReadCSV(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, 2, f.Len())

	ts, _ := f.Series("timestamp")
	assert.Equal(t, Text, ts.Kind())
	cl, _ := f.Series("close")
	assert.Equal(t, Float, cl.Kind())
	assert.True(t, cl.IsMissing(1))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))
	assert.Equal(t, doc, buf.String())
}

func TestWriteCSVIntColumn(t *testing.T) {
	f, err := New(
		NewInt("weekday", []float64{0, math.NaN()}),
		NewFloat("unix_timestamp", []float64{1615161600, 0.25}),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))
	assert.Equal(t, "weekday,unix_timestamp\n0,1615161600\n,0.25\n", buf.String())
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}
