package payload

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
)

// ErrNonPositiveDimension is returned when a Rectangle side is zero or negative.
var ErrNonPositiveDimension = errors.New("dimension must be positive")

// Fields is a read-only bag of named values.
type Fields interface {
	All() iter.Seq2[string, any]
}

// Map is a Fields backed by a map. All yields keys in sorted order.
type Map map[string]any

// All yields every field sorted by name.
func (m Map) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, key := range slices.Sorted(maps.Keys(m)) {
			if !yield(key, m[key]) {
				return
			}
		}
	}
}

// Get returns the named field.
func (m Map) Get(name string) (any, bool) {
	value, ok := m[name]

	return value, ok
}

// Rectangle is an immutable pair of positive dimensions.
type Rectangle struct {
	length int
	width  int
}

// NewRectangle validates and returns a Rectangle.
func NewRectangle(length, width int) (Rectangle, error) {
	if length <= 0 {
		return Rectangle{}, fmt.Errorf("%w: length %d", ErrNonPositiveDimension, length)
	}

	if width <= 0 {
		return Rectangle{}, fmt.Errorf("%w: width %d", ErrNonPositiveDimension, width)
	}

	return Rectangle{length: length, width: width}, nil
}

// Length returns the rectangle length.
func (r Rectangle) Length() int { return r.length }

// Width returns the rectangle width.
func (r Rectangle) Width() int { return r.width }

// All yields length then width.
func (r Rectangle) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if !yield("length", r.length) {
			return
		}

		yield("width", r.width)
	}
}

// String renders the rectangle as Rectangle(length=L, width=W).
func (r Rectangle) String() string {
	return fmt.Sprintf("Rectangle(length=%d, width=%d)", r.length, r.width)
}

// SaveEvent is the payload of an after-save signal.
type SaveEvent struct {
	Record  any
	Created bool
}

// Collect copies f into a plain map.
func Collect(f Fields) map[string]any {
	out := make(map[string]any)
	if f == nil {
		return out
	}

	maps.Insert(out, f.All())

	return out
}
