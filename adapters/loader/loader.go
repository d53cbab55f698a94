// Package loader reads CSV and Excel files into a typed table and records
// the file's format and encoding in the run metadata.
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"lazyprep/adapters/coercer"
	"lazyprep/domain/core"
	"lazyprep/domain/metadata"
	"lazyprep/domain/table"
	"lazyprep/internal"
	"lazyprep/internal/errors"
)

// Supported formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var supportedFormats = map[string][]string{
	FormatCSV: {"text/csv", ".csv"},
	FormatXLSX: {
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		".xls", ".xlsx",
	},
}

// Options controls ingestion
type Options struct {
	NormalizeColumns bool
	Sheet            string
	Coercion         coercer.CoercionConfig
}

// DefaultOptions returns the loader defaults
func DefaultOptions() Options {
	return Options{Coercion: coercer.DefaultCoercionConfig()}
}

// Loader handles reading Excel and CSV files
type Loader struct {
	opts    Options
	coercer *coercer.TypeCoercer
	logger  *internal.Logger
}

// New creates a loader
func New(opts Options, logger *internal.Logger) *Loader {
	return &Loader{
		opts:    opts,
		coercer: coercer.NewTypeCoercer(opts.Coercion),
		logger:  internal.OrDefault(logger).Named("loader"),
	}
}

// DetectFormat maps a path to csv or xlsx by MIME type and extension
func DetectFormat(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mimeType := mime.TypeByExtension(ext)
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	for _, format := range []string{FormatCSV, FormatXLSX} {
		for _, id := range supportedFormats[format] {
			if id == ext || (mimeType != "" && id == mimeType) {
				return format, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, path)
}

// Load reads the file into a typed table. The file info is stored only if
// metadata does not already carry one.
func (l *Loader) Load(ctx context.Context, path string, md *metadata.Pipeline) (*table.Table, error) {
	l.logger.Info("Loading %s", path)
	start := time.Now()

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.UnsupportedFormat(path, err)
	}
	format, err := DetectFormat(path)
	if err != nil {
		return nil, errors.UnsupportedFormat(path, err)
	}
	fi := &metadata.FileInfo{Path: path, Format: format, SizeBytes: info.Size()}

	var rows [][]string
	switch format {
	case FormatCSV:
		rows, fi.Encoding, err = l.readCSV(path)
	case FormatXLSX:
		rows, fi.Sheet, err = l.readExcel(path)
	}
	if err != nil {
		return nil, errors.UnsupportedFormat(path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := l.buildTable(rows)
	if err != nil {
		return nil, errors.Wrapf(err, "build table from %s", path)
	}
	if md != nil && md.FileInfo == nil {
		md.FileInfo = fi
	}
	l.logger.Info("Loaded %s (%s, %s): %d rows x %d columns in %.2fms",
		path, format, fi.Encoding, t.NumRows(), t.NumCols(), float64(time.Since(start).Microseconds())/1e3)
	return t, nil
}

func (l *Loader) readCSV(path string) ([][]string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	head := make([]byte, sniffSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, "", fmt.Errorf("failed to read CSV header: %w", err)
	}
	enc := DetectEncoding(head[:n])
	l.logger.Debug("Detected encoding %s", enc)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", err
	}

	r, err := decodingReader(f, enc)
	if err != nil {
		return nil, "", err
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, "", fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, enc, nil
}

func (l *Loader) readExcel(path string) ([][]string, string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := l.opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, "", fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, sheet, nil
}

// buildTable turns header + raw rows into typed columns
func (l *Loader) buildTable(rows [][]string) (*table.Table, error) {
	if len(rows) == 0 {
		return nil, core.ErrEmptyTable
	}
	headers := uniqueHeaders(rows[0], l.opts.NormalizeColumns)
	cells := make([][]string, len(headers))
	for j := range cells {
		cells[j] = make([]string, 0, len(rows)-1)
	}
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		for j := range headers {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			cells[j] = append(cells[j], cell)
		}
	}

	cols := make([]*table.Column, len(headers))
	for j, h := range headers {
		cols[j] = l.coercer.CoerceColumn(h, cells[j])
		l.logger.Trace("Column %s typed as %s", h, cols[j].Kind)
	}
	return table.New(cols...)
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// uniqueHeaders trims names, fills blanks and suffixes repeats with .1, .2, ...
func uniqueHeaders(raw []string, normalize bool) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if normalize {
			h = NormalizeColumnName(h)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// NormalizeColumnName lower-cases a name and replaces spaces with underscores
func NormalizeColumnName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
