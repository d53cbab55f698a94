package textproc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyprep/domain/metadata"
	"lazyprep/domain/table"
	"lazyprep/internal"
)

func texts(c *table.Column) []string {
	out := make([]string, c.Len())
	for i, v := range c.Values {
		out[i] = v.Text()
	}
	return out
}

func TestTransform(t *testing.T) {
	tb := table.MustNew(
		table.NewText("Season", []string{"  Winter", "WINTER ", "Summer", ""}),
		table.NewText("Notes", []string{"The rain, in Spain!", "It is sunny", "a", "Café closed"}),
		table.NewText("Label", []string{"Rainy ", "Sunny", "Rainy", "Snowy"}),
		table.NewNumeric("Temp", []float64{1, 2, 3, 4}),
	)
	md := metadata.New("Label")
	for _, n := range []string{"Season", "Notes", "Label"} {
		md.Columns.Set(n, &metadata.Column{Category: metadata.CategoryCategorical, Cardinality: 99})
	}

	p := New(Options{TextDataColumns: []string{"Notes", "Label"}, Lowercase: true, RemoveStopwords: true}, internal.NewNopLogger())
	require.NoError(t, p.Transform(context.Background(), tb, md))

	season, _ := tb.Column("Season")
	assert.Equal(t, []string{"winter", "winter", "summer", ""}, texts(season))
	seasonMeta, _ := md.Column("Season")
	assert.Equal(t, metadata.TextTypeNominal, seasonMeta.TextType)
	assert.Equal(t, 2, seasonMeta.Cardinality)
	require.NotNil(t, seasonMeta.ModeValue)
	assert.Equal(t, "winter", *seasonMeta.ModeValue)

	notes, _ := tb.Column("Notes")
	assert.Equal(t, "rain spain", notes.Values[0].Text())
	assert.Equal(t, "sunny", notes.Values[1].Text())
	assert.False(t, notes.Values[2].IsMissing(), "a cell of stop words is not turned into a missing value")
	assert.Equal(t, "a", notes.Values[2].Text())
	assert.Equal(t, "café closed", notes.Values[3].Text(), "NFC composes the accent")
	notesMeta, _ := md.Column("Notes")
	assert.Equal(t, metadata.TextTypeTextData, notesMeta.TextType)

	label, _ := tb.Column("Label")
	assert.Equal(t, []string{"Rainy", "Sunny", "Rainy", "Snowy"}, texts(label), "target labels keep their case")
	labelMeta, _ := md.Column("Label")
	assert.Equal(t, metadata.TextTypeNominal, labelMeta.TextType)
}

func TestTokenize(t *testing.T) {
	p := New(Options{RemoveStopwords: true}, internal.NewNopLogger())
	assert.Equal(t, []string{"Don't", "stop", "believing"}, p.Tokenize("Don't stop... the believing!"))

	keep := New(Options{}, internal.NewNopLogger())
	assert.Equal(t, []string{"the", "end"}, keep.Tokenize("the end."))
}

func TestPreprocessWithoutLowercase(t *testing.T) {
	p := New(Options{}, internal.NewNopLogger())
	assert.Equal(t, "Mixed Case", p.Preprocess("  Mixed Case ", false))
}
