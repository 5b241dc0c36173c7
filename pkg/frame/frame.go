// Package frame provides a small immutable column-oriented table used by the
// feature and training steps. Every operation returns a new Frame; callers
// never observe mutation through a previously returned value.
package frame

import (
	"errors"
	"fmt"
)

var (
	ErrColumnNotFound = errors.New("frame: column not found")
	ErrDuplicateName  = errors.New("frame: duplicate column name")
	ErrLengthMismatch = errors.New("frame: column length mismatch")
)

// Frame is an ordered set of equally sized series.
type Frame struct {
	cols []Series
	rows int
}

// New builds a frame from the given series.
func New(cols ...Series) (*Frame, error) {
	f := &Frame{cols: make([]Series, 0, len(cols))}
	seen := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		if _, ok := seen[c.name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, c.name)
		}
		seen[c.name] = struct{}{}
		if i == 0 {
			f.rows = c.Len()
		} else if c.Len() != f.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrLengthMismatch, c.name, c.Len(), f.rows)
		}
		f.cols = append(f.cols, c)
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.cols) }

// Names returns column names in order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.name
	}
	return out
}

// Has reports whether a column exists.
func (f *Frame) Has(name string) bool { return f.index(name) >= 0 }

// Series returns the named column.
func (f *Frame) Series(name string) (Series, error) {
	i := f.index(name)
	if i < 0 {
		return Series{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return f.cols[i], nil
}

// Columns returns all series in order.
func (f *Frame) Columns() []Series {
	out := make([]Series, len(f.cols))
	copy(out, f.cols)
	return out
}

// With returns a frame where each given series replaces the column of the
// same name in place, or is appended when no such column exists.
func (f *Frame) With(cols ...Series) (*Frame, error) {
	next := make([]Series, len(f.cols), len(f.cols)+len(cols))
	copy(next, f.cols)
	for _, c := range cols {
		replaced := false
		for i := range next {
			if next[i].name == c.name {
				next[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			next = append(next, c)
		}
	}
	if len(f.cols) == 0 {
		return New(next...)
	}
	for _, c := range cols {
		if c.Len() != f.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrLengthMismatch, c.name, c.Len(), f.rows)
		}
	}
	return &Frame{cols: next, rows: f.rows}, nil
}

// Drop returns a frame without the named columns. Every name must exist.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		if !f.Has(n) {
			return nil, fmt.Errorf("drop: %w: %q", ErrColumnNotFound, n)
		}
		drop[n] = struct{}{}
	}
	next := make([]Series, 0, len(f.cols))
	for _, c := range f.cols {
		if _, ok := drop[c.name]; ok {
			continue
		}
		next = append(next, c)
	}
	return &Frame{cols: next, rows: f.rows}, nil
}

// Take returns a frame whose rows are f's rows in the order given by idx.
func (f *Frame) Take(idx []int) (*Frame, error) {
	for _, j := range idx {
		if j < 0 || j >= f.rows {
			return nil, fmt.Errorf("take: row %d out of range [0,%d)", j, f.rows)
		}
	}
	next := make([]Series, len(f.cols))
	for i, c := range f.cols {
		next[i] = c.take(idx)
	}
	return &Frame{cols: next, rows: len(idx)}, nil
}

// Reverse returns a frame with the row order reversed.
func (f *Frame) Reverse() *Frame {
	idx := make([]int, f.rows)
	for i := range idx {
		idx[i] = f.rows - 1 - i
	}
	out, _ := f.Take(idx)
	return out
}

// ForwardFill fills every missing cell with the closest present value above
// it in the same column. Leading gaps remain missing.
func (f *Frame) ForwardFill() *Frame {
	next := make([]Series, len(f.cols))
	for i, c := range f.cols {
		next[i] = c.forwardFill()
	}
	return &Frame{cols: next, rows: f.rows}
}

// Equal reports whether two frames hold the same columns and cells.
// Missing cells compare equal to each other.
func (f *Frame) Equal(o *Frame) bool {
	if f.rows != o.rows || len(f.cols) != len(o.cols) {
		return false
	}
	for i := range f.cols {
		if !f.cols[i].equal(o.cols[i]) {
			return false
		}
	}
	return true
}

func (f *Frame) index(name string) int {
	for i, c := range f.cols {
		if c.name == name {
			return i
		}
	}
	return -1
}
