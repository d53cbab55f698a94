// Package textproc normalizes categorical text: Unicode NFC, trimming and
// case folding. Free-text columns are additionally tokenized with English
// stop words removed.
package textproc

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"lazyprep/domain/metadata"
	"lazyprep/domain/stage"
	"lazyprep/domain/table"
	"lazyprep/internal"
)

var stopWords = map[string]bool{
	"a": true, "about": true, "after": true, "all": true, "an": true, "and": true,
	"any": true, "are": true, "as": true, "at": true, "be": true, "been": true,
	"but": true, "by": true, "can": true, "did": true, "do": true, "does": true,
	"for": true, "from": true, "had": true, "has": true, "have": true, "he": true,
	"her": true, "his": true, "i": true, "if": true, "in": true, "into": true,
	"is": true, "it": true, "its": true, "me": true, "my": true, "no": true,
	"not": true, "of": true, "on": true, "or": true, "our": true, "she": true,
	"so": true, "than": true, "that": true, "the": true, "their": true, "them": true,
	"then": true, "there": true, "these": true, "they": true, "this": true, "to": true,
	"too": true, "very": true, "was": true, "we": true, "were": true, "what": true,
	"when": true, "which": true, "who": true, "will": true, "with": true, "you": true,
	"your": true,
}

// Options select free-text columns and the normalizations to apply
type Options struct {
	TextDataColumns []string
	Lowercase       bool
	RemoveStopwords bool
}

// Processor is the text handling stage
type Processor struct {
	opts   Options
	text   map[string]bool
	lower  cases.Caser
	logger *internal.Logger
}

// New creates a text processor
func New(opts Options, logger *internal.Logger) *Processor {
	text := make(map[string]bool, len(opts.TextDataColumns))
	for _, c := range opts.TextDataColumns {
		text[c] = true
	}
	return &Processor{
		opts:   opts,
		text:   text,
		lower:  cases.Lower(language.Und),
		logger: internal.OrDefault(logger).Named("text_processor"),
	}
}

func (p *Processor) Name() stage.StageName { return stage.StageTextProcessor }

// Transform rewrites every text feature column and tags its metadata
// with a text type. The target keeps its labels apart from NFC and trimming.
func (p *Processor) Transform(ctx context.Context, t *table.Table, md *metadata.Pipeline) error {
	for _, col := range t.Columns() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if col.Kind != table.KindText {
			continue
		}
		target := md.IsTarget(col.Name)
		freeText := p.text[col.Name] && !target
		p.logger.Debug("Processing column: %s", col.Name)

		for i, v := range col.Values {
			if v.IsMissing() {
				continue
			}
			s := strings.TrimSpace(norm.NFC.String(v.Text()))
			if !target {
				tokens := p.Preprocess(s, freeText)
				if tokens == "" {
					// stop words only: keep the folded text so the cell stays present
					tokens = p.Preprocess(s, false)
				}
				s = tokens
			}
			col.Values[i] = table.Str(s)
		}

		entry, ok := md.Column(col.Name)
		if !ok || !entry.IsCategorical() {
			continue
		}
		if freeText {
			entry.TextType = metadata.TextTypeTextData
		} else {
			entry.TextType = metadata.TextTypeNominal
		}
		refresh(entry, col)
	}
	return nil
}

// Preprocess folds case and, for free text, keeps the non stop-word tokens
// joined by single spaces.
func (p *Processor) Preprocess(s string, freeText bool) string {
	if p.opts.Lowercase {
		s = p.lower.String(s)
	}
	s = strings.TrimSpace(s)
	if !freeText {
		return s
	}
	return strings.Join(p.Tokenize(s), " ")
}

// Tokenize splits on whitespace and punctuation
func (p *Processor) Tokenize(s string) []string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '\'')
	})
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, "'")
		if w == "" {
			continue
		}
		if p.opts.RemoveStopwords && stopWords[p.lower.String(w)] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// refresh recomputes cardinality and mode after values were rewritten
func refresh(entry *metadata.Column, col *table.Column) {
	entry.Cardinality = len(col.Distinct())
	entry.ModeValue = nil
	if mode, ok := col.Mode(); ok {
		s := mode.String()
		entry.ModeValue = &s
	}
}
