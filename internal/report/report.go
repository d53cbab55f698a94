// Package report renders pipeline metadata as a human readable summary
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"lazyprep/domain/metadata"
	"lazyprep/internal/errors"
)

// Format selects the report rendering
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts md/markdown and html
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	}
	return "", errors.InvalidInput(fmt.Sprintf("unknown report format %q", s))
}

// Render produces the report in the requested format
func Render(md *metadata.Pipeline, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return []byte(Markdown(md)), nil
	case FormatHTML:
		return HTML(md), nil
	}
	return nil, errors.InvalidInput(fmt.Sprintf("unknown report format %q", format))
}

// HTML renders the Markdown summary as a complete HTML page
func HTML(md *metadata.Pipeline) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: fmt.Sprintf("lazyprep run %s", md.RunID),
	})
	return markdown.ToHTML([]byte(Markdown(md)), p, r)
}

// Markdown summarizes the run: input file, cleaning, per-column strategy
// and the fallback trail.
func Markdown(md *metadata.Pipeline) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Preprocessing report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", md.RunID)
	if md.TargetColumn != "" {
		fmt.Fprintf(&b, "- Target: `%s`\n", md.TargetColumn)
	}
	if !md.ConfigHash.IsEmpty() {
		fmt.Fprintf(&b, "- Config: `%s`, stages `%s`\n", md.ConfigHash.Short(), md.StageListHash.Short())
	}
	if fi := md.FileInfo; fi != nil {
		fmt.Fprintf(&b, "- Source: `%s` (%s", fi.Path, fi.Format)
		if fi.Encoding != "" {
			fmt.Fprintf(&b, ", %s", fi.Encoding)
		}
		b.WriteString(")\n")
	}
	b.WriteString("\n")

	writeCleaning(&b, md.CleaningStats)
	writeNumeric(&b, md)
	writeCategorical(&b, md)

	if len(md.UnclassifiedColumns) > 0 {
		b.WriteString("## Unclassified columns\n\n")
		for _, n := range md.UnclassifiedColumns {
			fmt.Fprintf(&b, "- `%s`\n", n)
		}
		b.WriteString("\n")
	}

	if enc := md.TargetEncoding; enc != nil {
		b.WriteString("## Target encoding\n\n| code | class |\n|---:|---|\n")
		for i, c := range enc.Classes {
			fmt.Fprintf(&b, "| %d | %s |\n", i, escape(c))
		}
		b.WriteString("\n")
	}

	writeStages(&b, md.Stages)

	if len(md.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range md.Warnings {
			fmt.Fprintf(&b, "- **%s**: %s\n", w.Stage, w.Message)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeCleaning(b *strings.Builder, cs metadata.CleaningStats) {
	b.WriteString("## Cleaning\n\n")
	fmt.Fprintf(b, "- Rows dropped: %d\n", cs.RowsDropped)
	fmt.Fprintf(b, "- Duplicates removed: %d\n", cs.DuplicatesRemoved)
	dropped := cs.ColumnsDropped.Sorted()
	if len(dropped) == 0 {
		b.WriteString("- Columns dropped: none\n\n")
		return
	}
	fmt.Fprintf(b, "- Columns dropped: %s\n\n", "`"+strings.Join(dropped, "`, `")+"`")
}

func writeNumeric(b *strings.Builder, md *metadata.Pipeline) {
	var rows []string
	md.Columns.Each(func(name string, c *metadata.Column) {
		if !c.IsNumeric() {
			return
		}
		rows = append(rows, fmt.Sprintf("| %s | %s | %s | %s | %s | %s |",
			escape(name), c.DistributionName, formatParams(c.DistributionParams),
			c.RecommendedOutlier, c.RecommendedImpute, c.RecommendedNormalize))
	})
	if len(rows) == 0 {
		return
	}
	b.WriteString("## Numeric columns\n\n")
	b.WriteString("| column | distribution | parameters | outlier | imputation | normalization |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	b.WriteString(strings.Join(rows, "\n"))
	b.WriteString("\n\n")
}

func writeCategorical(b *strings.Builder, md *metadata.Pipeline) {
	var rows []string
	md.Columns.Each(func(name string, c *metadata.Column) {
		if c.IsNumeric() {
			return
		}
		mode := ""
		if c.ModeValue != nil {
			mode = escape(*c.ModeValue)
		}
		var card string
		if c.IsCategorical() {
			card = fmt.Sprint(c.Cardinality)
		}
		rows = append(rows, fmt.Sprintf("| %s | %s | %s | %s | %s |",
			escape(name), c.Category, card, mode, c.TextType))
	})
	if len(rows) == 0 {
		return
	}
	b.WriteString("## Other columns\n\n")
	b.WriteString("| column | category | cardinality | mode | text type |\n")
	b.WriteString("|---|---|---:|---|---|\n")
	b.WriteString(strings.Join(rows, "\n"))
	b.WriteString("\n\n")
}

func writeStages(b *strings.Builder, stages []metadata.StageAudit) {
	if len(stages) == 0 {
		return
	}
	b.WriteString("## Stages\n\n")
	b.WriteString("| stage | rows | columns | ms | warnings |\n")
	b.WriteString("|---|---|---|---:|---:|\n")
	for _, s := range stages {
		fmt.Fprintf(b, "| %s | %d → %d | %d → %d | %d | %d |\n",
			s.Stage, s.RowsBefore, s.RowsAfter, s.ColumnsBefore, s.ColumnsAfter, s.DurationMs, len(s.Warnings))
	}
	b.WriteString("\n")
}

func formatParams(params map[string]float64) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%.4g", k, params[k])
	}
	return strings.Join(parts, ", ")
}

// escape keeps cell text from breaking the table
func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
