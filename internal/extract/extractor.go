package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Extractor applies an ordered rule table to raw OCR text.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	rules map[FieldKind][]Rule
}

// NewExtractor creates an extractor with the default rule table
func NewExtractor() *Extractor {
	return &Extractor{rules: DefaultRules()}
}

// WithRules returns a copy of the extractor with the rules for kind replaced
func (e *Extractor) WithRules(kind FieldKind, rules []Rule) *Extractor {
	next := make(map[FieldKind][]Rule, len(e.rules)+1)
	for k, r := range e.rules {
		next[k] = r
	}
	next[kind] = append([]Rule(nil), rules...)
	return &Extractor{rules: next}
}

// Rules returns the ordered rules for kind
func (e *Extractor) Rules(kind FieldKind) []Rule {
	return append([]Rule(nil), e.rules[kind]...)
}

// Extract builds the record for one document.
// It never fails; fields no rule can extract resolve to NotFound.
func (e *Extractor) Extract(rawText string, index int) DocumentRecord {
	rec := DocumentRecord{index: index, rawText: rawText}
	text := normalize(rawText)

	for k := FieldKind(0); k < fieldKindCount; k++ {
		if k == DocumentType {
			rec.fields[k] = matchDocumentType(text)
			continue
		}
		rec.fields[k] = firstMatch(text, e.rules[k])
	}
	return rec
}

// ExtractBatch extracts texts in order, assigning 1-based indexes
func (e *Extractor) ExtractBatch(rawTexts []string) []DocumentRecord {
	out := make([]DocumentRecord, len(rawTexts))
	for i, t := range rawTexts {
		out[i] = e.Extract(t, i+1)
	}
	return out
}

var defaultExtractor = NewExtractor()

// Extract runs the default extractor
func Extract(rawText string, index int) DocumentRecord {
	return defaultExtractor.Extract(rawText, index)
}

// ExtractBatch runs the default extractor over an ordered batch
func ExtractBatch(rawTexts []string) []DocumentRecord {
	return defaultExtractor.ExtractBatch(rawTexts)
}

var quoteFolder = strings.NewReplacer("’", "'", "‘", "'", "`", "'", "´", "'")

// normalize composes accents the way labels are written and folds typographic quotes.
func normalize(s string) string {
	if s == "" {
		return s
	}
	return quoteFolder.Replace(norm.NFC.String(s))
}
