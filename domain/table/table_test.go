package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyprep/domain/core"
)

func sample() *Table {
	return MustNew(
		NewNumeric("x", []float64{1, math.NaN(), 3, 1}),
		NewText("c", []string{"a", "b", "", "a"}),
	)
}

func TestNewRejectsBadShapes(t *testing.T) {
	_, err := New(NewNumeric("x", []float64{1, 2}), NewNumeric("y", []float64{1}))
	assert.ErrorIs(t, err, core.ErrShapeMismatch)

	_, err = New(NewNumeric("x", []float64{1}), NewNumeric("x", []float64{2}))
	assert.ErrorIs(t, err, core.ErrDuplicateColumn)
}

func TestMissingCounts(t *testing.T) {
	tb := sample()
	x, ok := tb.Column("x")
	require.True(t, ok)
	assert.Equal(t, 1, x.MissingCount())
	assert.InDelta(t, 0.25, x.NullRatio(), 1e-12)
	assert.Equal(t, []float64{1, 3, 1}, x.Present())
	assert.Equal(t, 1, tb.RowMissingCount(1))
	assert.Equal(t, 1, tb.RowMissingCount(2))
}

func TestKeepRowsAndDropColumns(t *testing.T) {
	tb := sample()
	removed := tb.KeepRows([]bool{true, false, true, true})
	assert.Equal(t, 1, removed)
	assert.Equal(t, 3, tb.NumRows())
	c, _ := tb.Column("c")
	assert.Equal(t, "a", c.Values[0].Text())
	assert.True(t, c.Values[1].IsMissing())

	assert.Equal(t, []string{"c"}, tb.DropColumns("c", "nope"))
	assert.Equal(t, []string{"x"}, tb.Names())
	assert.False(t, tb.Has("c"))
}

func TestRowKeyDetectsDuplicates(t *testing.T) {
	tb := sample()
	assert.Equal(t, tb.RowKey(0), tb.RowKey(3))
	assert.NotEqual(t, tb.RowKey(0), tb.RowKey(1))

	// numeric 1 and text "1" differ
	tb2 := MustNew(NewColumn("v", KindText, []Value{Num(1), Str("1")}))
	assert.NotEqual(t, tb2.RowKey(0), tb2.RowKey(1))
}

func TestModeTieBreaksOnSmallest(t *testing.T) {
	c := NewText("c", []string{"b", "a", "b", "a", ""})
	m, ok := c.Mode()
	require.True(t, ok)
	assert.Equal(t, "a", m.Text())

	n := NewNumeric("n", []float64{3, 2, 3, 2, 9})
	m, ok = n.Mode()
	require.True(t, ok)
	assert.Equal(t, 2.0, m.Float())

	_, ok = NewNumeric("e", []float64{math.NaN()}).Mode()
	assert.False(t, ok)
}

func TestMatrixRoundTrip(t *testing.T) {
	tb := MustNew(
		NewNumeric("a", []float64{1, 2}),
		NewNumeric("b", []float64{math.NaN(), 4}),
	)
	m, err := tb.Matrix([]string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(m[0][1]))
	m[0][1] = 7
	require.NoError(t, tb.SetMatrix([]string{"a", "b"}, m))
	b, _ := tb.Column("b")
	assert.Equal(t, []float64{7, 4}, b.Floats())

	_, err = tb.Matrix([]string{"zz"})
	assert.ErrorIs(t, err, core.ErrColumnNotFound)
}

func TestFillAndClone(t *testing.T) {
	tb := sample()
	cp := tb.Clone()
	x, _ := tb.Column("x")
	assert.Equal(t, 1, x.Fill(Num(0)))
	cx, _ := cp.Column("x")
	assert.Equal(t, 1, cx.MissingCount())
}
