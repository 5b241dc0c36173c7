package frame

import (
	"math"
	"strconv"
)

// Kind is the storage type of a Series.
type Kind int

const (
	Float Kind = iota
	Int
	Text
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Int:
		return "int"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// Series is a named, immutable column. Numeric series use NaN for missing
// cells, text series use the empty string.
type Series struct {
	name string
	kind Kind
	nums []float64
	text []string
}

// NewFloat builds a float series. The values slice is copied.
func NewFloat(name string, values []float64) Series {
	return Series{name: name, kind: Float, nums: cloneFloats(values)}
}

// NewInt builds an integer series. Values are stored as float64 so that
// missing cells can be represented as NaN; fractional parts are truncated.
func NewInt(name string, values []float64) Series {
	nums := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			nums[i] = math.NaN()
			continue
		}
		nums[i] = math.Trunc(v)
	}
	return Series{name: name, kind: Int, nums: nums}
}

// NewText builds a text series. The values slice is copied.
func NewText(name string, values []string) Series {
	text := make([]string, len(values))
	copy(text, values)
	return Series{name: name, kind: Text, text: text}
}

func (s Series) Name() string { return s.name }
func (s Series) Kind() Kind   { return s.kind }

// Len returns the number of cells.
func (s Series) Len() int {
	if s.kind == Text {
		return len(s.text)
	}
	return len(s.nums)
}

// Rename returns a copy of the series under a new name.
func (s Series) Rename(name string) Series {
	s.name = name
	return s
}

// IsNumeric reports whether the series holds float or int values.
func (s Series) IsNumeric() bool { return s.kind == Float || s.kind == Int }

// Floats returns the cells as float64. Text cells that do not parse as a
// number become NaN.
func (s Series) Floats() []float64 {
	if s.kind != Text {
		return cloneFloats(s.nums)
	}
	out := make([]float64, len(s.text))
	for i, v := range s.text {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			f = math.NaN()
		}
		out[i] = f
	}
	return out
}

// Strings returns the cells formatted as text; missing cells are "".
func (s Series) Strings() []string {
	out := make([]string, s.Len())
	for i := range out {
		out[i] = s.Cell(i)
	}
	return out
}

// Cell formats a single cell.
func (s Series) Cell(i int) string {
	switch s.kind {
	case Text:
		return s.text[i]
	case Int:
		v := s.nums[i]
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatInt(int64(v), 10)
	default:
		return formatFloat(s.nums[i])
	}
}

// IsMissing reports whether cell i holds no value.
func (s Series) IsMissing(i int) bool {
	if s.kind == Text {
		return s.text[i] == ""
	}
	return math.IsNaN(s.nums[i])
}

// take returns a series with cells reordered by idx.
func (s Series) take(idx []int) Series {
	out := Series{name: s.name, kind: s.kind}
	if s.kind == Text {
		out.text = make([]string, len(idx))
		for i, j := range idx {
			out.text[i] = s.text[j]
		}
		return out
	}
	out.nums = make([]float64, len(idx))
	for i, j := range idx {
		out.nums[i] = s.nums[j]
	}
	return out
}

// forwardFill propagates the last present value into missing cells.
// Leading missing cells stay missing.
func (s Series) forwardFill() Series {
	out := Series{name: s.name, kind: s.kind}
	if s.kind == Text {
		out.text = make([]string, len(s.text))
		last := ""
		for i, v := range s.text {
			if v != "" {
				last = v
			}
			out.text[i] = last
		}
		return out
	}
	out.nums = make([]float64, len(s.nums))
	last := math.NaN()
	for i, v := range s.nums {
		if !math.IsNaN(v) {
			last = v
		}
		out.nums[i] = last
	}
	return out
}

func (s Series) equal(o Series) bool {
	if s.name != o.name || s.kind != o.kind || s.Len() != o.Len() {
		return false
	}
	if s.kind == Text {
		for i := range s.text {
			if s.text[i] != o.text[i] {
				return false
			}
		}
		return true
	}
	for i := range s.nums {
		a, b := s.nums[i], o.nums[i]
		if math.IsNaN(a) && math.IsNaN(b) {
			continue
		}
		if a != b {
			return false
		}
	}
	return true
}

func cloneFloats(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	return out
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
