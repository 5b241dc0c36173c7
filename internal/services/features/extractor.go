package features

import (
	"errors"
	"fmt"
	"math"

	"StockML/pkg/frame"
	"StockML/pkg/util"
)

// Column names read and produced by the Extractor.
const (
	ColTimestamp     = "timestamp"
	ColClose         = "close"
	ColRolling3Mean  = "rolling_3_mean"
	ColRolling7Mean  = "rolling_7_mean"
	ColEWMA          = "ewma"
	ColUnixTimestamp = "unix_timestamp"
	ColWeekday       = "weekday"
	ColMonth         = "month"
	ColCloseShifted  = "close_shifted"
)

const (
	// Rolling3Window is the trailing window for rolling_3_mean.
	Rolling3Window = 3
	// EWMAAlpha is the smoothing factor for ewma.
	EWMAAlpha = 0.5
)

var (
	// ErrSchema reports a missing required column.
	ErrSchema = errors.New("features: schema error")
	// ErrParse reports a timestamp that is not a date/time.
	ErrParse = errors.New("features: parse error")
)

// ParseError identifies the first timestamp cell that failed to parse.
type ParseError struct {
	Row   int
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: row %d: cannot parse timestamp %q", ErrParse, e.Row, e.Value)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// DerivedColumns lists the columns Transform appends, in output order.
func DerivedColumns() []string {
	return []string{
		ColRolling3Mean, ColRolling7Mean, ColEWMA,
		ColUnixTimestamp, ColWeekday, ColMonth,
		ColCloseShifted,
	}
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRolling7Window sets the window used for rolling_7_mean. The default
// is Rolling3Window, which keeps rolling_7_mean identical to rolling_3_mean.
func WithRolling7Window(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.rolling7Window = n
		}
	}
}

// Extractor turns a daily close series into a supervised training table.
type Extractor struct {
	rolling7Window int
}

// NewExtractor builds an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{rolling7Window: Rolling3Window}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transform returns a new frame holding the input columns minus timestamp,
// followed by the derived feature columns and the close_shifted target.
// Rows keep their order and count; cells without enough history are NaN.
func (e *Extractor) Transform(in *frame.Frame) (*frame.Frame, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nil frame", ErrSchema)
	}
	closeCol, err := in.Series(ColClose)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	tsCol, err := in.Series(ColTimestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	unix, weekday, month, err := calendar(tsCol.Strings())
	if err != nil {
		return nil, err
	}

	closes := closeCol.Floats()
	lagged := frame.Shift(closes, 1)

	out, err := in.Drop(ColTimestamp)
	if err != nil {
		return nil, err
	}
	return out.With(
		frame.NewFloat(ColRolling3Mean, frame.RollingMean(lagged, Rolling3Window)),
		frame.NewFloat(ColRolling7Mean, frame.RollingMean(lagged, e.rolling7Window)),
		frame.NewFloat(ColEWMA, frame.EWMA(lagged, EWMAAlpha)),
		frame.NewFloat(ColUnixTimestamp, unix),
		frame.NewInt(ColWeekday, weekday),
		frame.NewInt(ColMonth, month),
		frame.NewFloat(ColCloseShifted, frame.Shift(closes, -1)),
	)
}

func calendar(stamps []string) (unix, weekday, month []float64, err error) {
	unix = make([]float64, len(stamps))
	weekday = make([]float64, len(stamps))
	month = make([]float64, len(stamps))
	for i, s := range stamps {
		t, ok := util.ParseTime(s)
		if !ok {
			return nil, nil, nil, &ParseError{Row: i, Value: s}
		}
		unix[i] = util.UnixSeconds(t)
		weekday[i] = float64(util.ISOWeekday(t))
		month[i] = float64(t.Month())
	}
	return unix, weekday, month, nil
}

// CountMissing returns, per derived column, how many cells are NaN.
func CountMissing(f *frame.Frame) map[string]int {
	out := make(map[string]int)
	for _, name := range DerivedColumns() {
		s, err := f.Series(name)
		if err != nil {
			continue
		}
		n := 0
		for _, v := range s.Floats() {
			if math.IsNaN(v) {
				n++
			}
		}
		out[name] = n
	}
	return out
}
