package features

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"StockML/pkg/frame"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyFrame(t *testing.T, dates []string, closes []float64) *frame.Frame {
	t.Helper()
	volume := make([]float64, len(closes))
	for i := range volume {
		volume[i] = float64(1000 + i)
	}
	f, err := frame.New(
		frame.NewText(ColTimestamp, dates),
		frame.NewFloat("open", closes),
		frame.NewFloat(ColClose, closes),
		frame.NewFloat("volume", volume),
	)
	require.NoError(t, err)
	return f
}

func fiveDays(t *testing.T) *frame.Frame {
	return dailyFrame(t,
		[]string{"2021-03-08", "2021-03-09", "2021-03-10", "2021-03-11", "2021-03-12"},
		[]float64{10, 11, 12, 13, 14},
	)
}

func floats(t *testing.T, f *frame.Frame, name string) []float64 {
	t.Helper()
	s, err := f.Series(name)
	require.NoError(t, err)
	return s.Floats()
}

func TestTransformEndToEnd(t *testing.T) {
	out, err := NewExtractor().Transform(fiveDays(t))
	require.NoError(t, err)
	require.Equal(t, 5, out.Len())

	shifted := floats(t, out, ColCloseShifted)
	assert.Equal(t, []float64{11, 12, 13, 14}, shifted[:4])
	assert.True(t, math.IsNaN(shifted[4]))

	r3 := floats(t, out, ColRolling3Mean)
	for i := 0; i < 3; i++ {
		assert.Truef(t, math.IsNaN(r3[i]), "rolling_3_mean[%d] should be missing", i)
	}
	assert.Equal(t, 11.0, r3[3])
	assert.Equal(t, 12.0, r3[4])

	ewma := floats(t, out, ColEWMA)
	assert.True(t, math.IsNaN(ewma[0]))
	assert.InDelta(t, 10.0, ewma[1], 1e-12)
	assert.InDelta(t, 16.0/1.5, ewma[2], 1e-12)

	assert.Equal(t, []float64{0, 1, 2, 3, 4}, floats(t, out, ColWeekday))
	assert.Equal(t, []float64{3, 3, 3, 3, 3}, floats(t, out, ColMonth))
}

func TestTransformColumnSet(t *testing.T) {
	out, err := NewExtractor().Transform(fiveDays(t))
	require.NoError(t, err)

	want := append([]string{"open", ColClose, "volume"}, DerivedColumns()...)
	assert.Equal(t, want, out.Names())
	assert.False(t, out.Has(ColTimestamp))
}

func TestTransformPassthroughUnchanged(t *testing.T) {
	in := fiveDays(t)
	out, err := NewExtractor().Transform(in)
	require.NoError(t, err)

	for _, name := range []string{"open", ColClose, "volume"} {
		assert.Equal(t, floats(t, in, name), floats(t, out, name), name)
	}
	assert.True(t, in.Has(ColTimestamp), "input must not be modified")
}

func TestRolling7MatchesRolling3ByDefault(t *testing.T) {
	closes := []float64{5, 7, 6, 9, 12, 11, 10, 13, 15, 14}
	dates := []string{"2021-01-04", "2021-01-05", "2021-01-06", "2021-01-07", "2021-01-08",
		"2021-01-11", "2021-01-12", "2021-01-13", "2021-01-14", "2021-01-15"}
	out, err := NewExtractor().Transform(dailyFrame(t, dates, closes))
	require.NoError(t, err)

	r3 := floats(t, out, ColRolling3Mean)
	r7 := floats(t, out, ColRolling7Mean)
	for i := range r3 {
		if math.IsNaN(r3[i]) {
			assert.Truef(t, math.IsNaN(r7[i]), "row %d", i)
			continue
		}
		assert.Equalf(t, r3[i], r7[i], "row %d", i)
	}
}

func TestRolling7GenuineWindow(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	dates := []string{"2021-02-01", "2021-02-02", "2021-02-03", "2021-02-04", "2021-02-05",
		"2021-02-08", "2021-02-09", "2021-02-10", "2021-02-11"}
	out, err := NewExtractor(WithRolling7Window(7)).Transform(dailyFrame(t, dates, closes))
	require.NoError(t, err)

	r7 := floats(t, out, ColRolling7Mean)
	for i := 0; i < 7; i++ {
		assert.Truef(t, math.IsNaN(r7[i]), "row %d", i)
	}
	assert.Equal(t, 4.0, r7[7])
	assert.Equal(t, 5.0, r7[8])
}

func TestCalendarDerivation(t *testing.T) {
	out, err := NewExtractor().Transform(dailyFrame(t, []string{"2021-03-08"}, []float64{1}))
	require.NoError(t, err)

	assert.Equal(t, []float64{0}, floats(t, out, ColWeekday))
	assert.Equal(t, []float64{3}, floats(t, out, ColMonth))

	wd, _ := out.Series(ColWeekday)
	assert.Equal(t, frame.Int, wd.Kind())
}

func TestCompactDateTimestamps(t *testing.T) {
	in, err := frame.ReadCSV(strings.NewReader("timestamp,close\n20210308,10\n20210309,11\n"))
	require.NoError(t, err)

	out, err := NewExtractor().Transform(in)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1}, floats(t, out, ColWeekday))
	assert.Equal(t, []float64{3, 3}, floats(t, out, ColMonth))
	assert.Equal(t, float64(time.Date(2021, 3, 8, 0, 0, 0, 0, time.UTC).Unix()), floats(t, out, ColUnixTimestamp)[0])
}

func TestUnixTimestamp(t *testing.T) {
	out, err := NewExtractor().Transform(dailyFrame(t, []string{"1970-01-02T00:00:00Z"}, []float64{1}))
	require.NoError(t, err)
	assert.Equal(t, []float64{86400.0}, floats(t, out, ColUnixTimestamp))
}

func TestTransformDeterministic(t *testing.T) {
	e := NewExtractor()
	a, err := e.Transform(fiveDays(t))
	require.NoError(t, err)
	b, err := e.Transform(fiveDays(t))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestTransformMissingClose(t *testing.T) {
	in, err := frame.New(frame.NewText(ColTimestamp, []string{"2021-03-08"}))
	require.NoError(t, err)

	out, err := NewExtractor().Transform(in)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestTransformMissingTimestamp(t *testing.T) {
	in, err := frame.New(frame.NewFloat(ColClose, []float64{1}))
	require.NoError(t, err)

	_, err = NewExtractor().Transform(in)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestTransformBadTimestamp(t *testing.T) {
	in := dailyFrame(t, []string{"2021-03-08", "yesterday"}, []float64{1, 2})

	_, err := NewExtractor().Transform(in)
	require.ErrorIs(t, err, ErrParse)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.Row)
	assert.Equal(t, "yesterday", pe.Value)
}

func TestTransformNonNumericClosePropagates(t *testing.T) {
	in, err := frame.New(
		frame.NewText(ColTimestamp, []string{"2021-03-08", "2021-03-09", "2021-03-10"}),
		frame.NewText(ColClose, []string{"10", "n/a", "12"}),
	)
	require.NoError(t, err)

	out, err := NewExtractor().Transform(in)
	require.NoError(t, err)

	shifted := floats(t, out, ColCloseShifted)
	assert.True(t, math.IsNaN(shifted[0]))
	assert.Equal(t, 12.0, shifted[1])

	missing := CountMissing(out)
	assert.Equal(t, 3, missing[ColRolling3Mean])
	assert.Equal(t, 2, missing[ColCloseShifted])
	assert.Equal(t, 0, missing[ColMonth])
}

func TestTransformEmptyFrame(t *testing.T) {
	out, err := NewExtractor().Transform(dailyFrame(t, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Len(t, out.Names(), 3+len(DerivedColumns()))
}
