package loader

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyprep/domain/core"
	"lazyprep/domain/metadata"
	"lazyprep/domain/table"
	"lazyprep/internal"
	"lazyprep/internal/errors"
)

func newLoader() *Loader {
	return New(DefaultOptions(), internal.NewNopLogger())
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"data.csv", FormatCSV, true},
		{"DATA.CSV", FormatCSV, true},
		{"book.xlsx", FormatXLSX, true},
		{"old.xls", FormatXLSX, true},
		{"notes.txt", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.path)
		if tt.ok {
			require.NoError(t, err, tt.path)
			assert.Equal(t, tt.want, got, tt.path)
		} else {
			assert.ErrorIs(t, err, core.ErrUnsupportedFormat, tt.path)
		}
	}
}

func TestDetectEncoding(t *testing.T) {
	assert.Equal(t, EncodingASCII, DetectEncoding([]byte("a,b\n1,2\n")))
	assert.Equal(t, EncodingUTF8, DetectEncoding([]byte("name\ncafé\n")))
	assert.Equal(t, EncodingUTF8BOM, DetectEncoding([]byte("\xEF\xBB\xBFa,b")))
	assert.Equal(t, EncodingUTF16, DetectEncoding([]byte{0xFF, 0xFE, 'a', 0}))
	assert.Equal(t, EncodingWindows1252, DetectEncoding([]byte("name\ncaf\xE9\n")))
	// rune cut at the sniff boundary
	assert.Equal(t, EncodingUTF8, DetectEncoding([]byte("ab\xC3")))
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "weather.csv", []byte("Temperature,City,Rain,Date,Empty\n21.5,Paris,true,2024-01-01,\nNA,Lyon,false,2024-01-02,\n19,Paris,,2024-01-03,NaN\n"))
	md := metadata.New("")

	tb, err := newLoader().Load(context.Background(), path, md)
	require.NoError(t, err)
	assert.Equal(t, 3, tb.NumRows())
	assert.Equal(t, []string{"Temperature", "City", "Rain", "Date", "Empty"}, tb.Names())

	temp, _ := tb.Column("Temperature")
	assert.Equal(t, table.KindNumeric, temp.Kind)
	assert.True(t, math.IsNaN(temp.Floats()[1]))
	city, _ := tb.Column("City")
	assert.Equal(t, table.KindText, city.Kind)
	rain, _ := tb.Column("Rain")
	assert.Equal(t, table.KindBoolean, rain.Kind)
	date, _ := tb.Column("Date")
	assert.Equal(t, table.KindDatetime, date.Kind)
	empty, _ := tb.Column("Empty")
	assert.Equal(t, table.KindUnknown, empty.Kind)

	require.NotNil(t, md.FileInfo)
	assert.Equal(t, FormatCSV, md.FileInfo.Format)
	assert.Equal(t, EncodingASCII, md.FileInfo.Encoding)
	assert.Equal(t, path, md.FileInfo.Path)
}

func TestLoadWindows1252(t *testing.T) {
	path := writeFile(t, "latin.csv", []byte("name,score\ncaf\xE9,1\nna\xEFve,2\n"))
	md := metadata.New("")
	tb, err := newLoader().Load(context.Background(), path, md)
	require.NoError(t, err)
	name, _ := tb.Column("name")
	assert.Equal(t, "café", name.Values[0].Text())
	assert.Equal(t, "naïve", name.Values[1].Text())
	assert.Equal(t, EncodingWindows1252, md.FileInfo.Encoding)
}

func TestLoadKeepsExistingFileInfo(t *testing.T) {
	path := writeFile(t, "a.csv", []byte("x\n1\n"))
	md := metadata.New("")
	md.FileInfo = &metadata.FileInfo{Path: "first.csv", Format: FormatCSV}
	_, err := newLoader().Load(context.Background(), path, md)
	require.NoError(t, err)
	assert.Equal(t, "first.csv", md.FileInfo.Path)
}

func TestLoadDuplicateAndBlankHeaders(t *testing.T) {
	path := writeFile(t, "dup.csv", []byte("a,a,,Max Speed\n1,2,3,4\n"))
	opts := DefaultOptions()
	opts.NormalizeColumns = true
	tb, err := New(opts, internal.NewNopLogger()).Load(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "unnamed:_2", "max_speed"}, tb.Names())
}

func TestLoadUnsupported(t *testing.T) {
	path := writeFile(t, "a.json", []byte("{}"))
	_, err := newLoader().Load(context.Background(), path, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnsupportedFormat, errors.GetCode(err))
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestWriteAndReloadXLSX(t *testing.T) {
	tb := table.MustNew(
		table.NewNumeric("x", []float64{1.5, math.NaN(), 3}),
		table.NewText("label", []string{"a", "b", ""}),
	)
	path := filepath.Join(t.TempDir(), "out", "clean.xlsx")
	require.NoError(t, Write(tb, path))

	md := metadata.New("")
	back, err := newLoader().Load(context.Background(), path, md)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "label"}, back.Names())
	x, _ := back.Column("x")
	assert.Equal(t, table.KindNumeric, x.Kind)
	assert.Equal(t, 1, x.MissingCount())
	assert.Equal(t, "Sheet1", md.FileInfo.Sheet)
}

func TestWriteCSV(t *testing.T) {
	tb := table.MustNew(
		table.NewNumeric("x", []float64{1, math.NaN()}),
		table.NewText("c", []string{"a,b", "z"}),
	)
	path := filepath.Join(t.TempDir(), "o.csv")
	require.NoError(t, Write(tb, path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x,c\n1,\"a,b\"\n,z\n", string(b))
}
