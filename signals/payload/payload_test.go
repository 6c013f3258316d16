//go:build unit

package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRectangle(t *testing.T) {
	t.Parallel()

	rect, err := NewRectangle(5, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, rect.Length())
	assert.Equal(t, 3, rect.Width())
	assert.Equal(t, "Rectangle(length=5, width=3)", rect.String())
}

func TestNewRectangle_RejectsNonPositive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		length, width int
	}{
		{name: "zero length", length: 0, width: 3},
		{name: "negative width", length: 5, width: -1},
		{name: "both zero", length: 0, width: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewRectangle(tt.length, tt.width)
			require.ErrorIs(t, err, ErrNonPositiveDimension)
		})
	}
}

func TestRectangle_AllYieldsLengthThenWidth(t *testing.T) {
	t.Parallel()

	rect, err := NewRectangle(5, 3)
	require.NoError(t, err)

	var names []string
	for name := range rect.All() {
		names = append(names, name)
	}

	assert.Equal(t, []string{"length", "width"}, names)
	assert.Equal(t, map[string]any{"length": 5, "width": 3}, Collect(rect))
}

func TestRectangle_AllStopsEarly(t *testing.T) {
	t.Parallel()

	rect, err := NewRectangle(5, 3)
	require.NoError(t, err)

	calls := 0
	for range rect.All() {
		calls++
		break
	}

	assert.Equal(t, 1, calls)
}

func TestMap(t *testing.T) {
	t.Parallel()

	m := Map{"b": 2, "a": 1}

	var names []string
	for name := range m.All() {
		names = append(names, name)
	}

	assert.Equal(t, []string{"a", "b"}, names)

	value, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, value)

	assert.Empty(t, Collect(nil))
}
