package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// CaptureStrategy selects which part of a match becomes the field value
type CaptureStrategy int

const (
	// CaptureGroup uses the first capture group
	CaptureGroup CaptureStrategy = iota
	// WholeMatch uses the entire match, for patterns without a group
	WholeMatch
)

// Rule is one pattern in a field's ordered rule list.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Capture CaptureStrategy

	// NotPrecededBy rejects candidate matches whose preceding text matches it.
	// RE2 has no lookbehind, so "Name" can't exclude "Last name" on its own.
	NotPrecededBy *regexp.Regexp

	// wordStart records a leading \b, which a resliced search can't see
	wordStart bool
}

// lookbehindWindow bounds how much preceding text NotPrecededBy inspects
const lookbehindWindow = 64

// NewRule compiles a case-insensitive capture-group rule
func NewRule(name, pattern string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(`(?i)` + pattern), Capture: CaptureGroup}
}

// NewWholeMatchRule compiles a case-insensitive rule returning the whole match
func NewWholeMatchRule(name, pattern string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(`(?i)` + pattern), Capture: WholeMatch}
}

// notAfter returns a copy of r that skips candidates preceded by pattern
func (r Rule) notAfter(pattern string) Rule {
	r.NotPrecededBy = regexp.MustCompile(`(?i)(?:` + pattern + `)$`)
	r.wordStart = strings.HasPrefix(strings.TrimPrefix(r.Pattern.String(), `(?i)`), `\b`)
	return r
}

// apply returns the trimmed value of the rule's first acceptable match.
func (r Rule) apply(text string) (string, bool) {
	loc := r.locate(text)
	if loc == nil {
		return "", false
	}

	var v string
	switch r.Capture {
	case WholeMatch:
		v = text[loc[0]:loc[1]]
	default:
		if len(loc) < 4 || loc[2] < 0 {
			return "", false
		}
		v = text[loc[2]:loc[3]]
	}

	v = strings.TrimSpace(v)
	return v, v != ""
}

// locate finds the first match not rejected by NotPrecededBy. A rejected
// candidate restarts the search one rune later, so later matches that
// overlap it are still seen.
func (r Rule) locate(text string) []int {
	if r.NotPrecededBy == nil {
		return r.Pattern.FindStringSubmatchIndex(text)
	}
	for start := 0; start <= len(text); {
		loc := r.Pattern.FindStringSubmatchIndex(text[start:])
		if loc == nil {
			return nil
		}
		for i := range loc {
			if loc[i] >= 0 {
				loc[i] += start
			}
		}

		at := loc[0]
		if !r.midWord(text, start, at) &&
			!r.NotPrecededBy.MatchString(text[max(0, at-lookbehindWindow):at]) {
			return loc
		}

		_, size := utf8.DecodeRuneInString(text[at:])
		start = at + max(size, 1)
	}
	return nil
}

// midWord reports a match at the start of a resliced search whose leading \b
// only held because the slice cut a word.
func (r Rule) midWord(text string, start, at int) bool {
	return r.wordStart && at == start && at > 0 && at < len(text) &&
		isWordByte(text[at-1]) && isWordByte(text[at])
}

func isWordByte(b byte) bool {
	return b == '_' || '0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

// firstMatch evaluates rules in order; the first non-empty value wins.
func firstMatch(text string, rules []Rule) Field {
	for _, r := range rules {
		if v, ok := r.apply(text); ok {
			return Found(v)
		}
	}
	return NotFound
}

const (
	datePattern   = `(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4})`
	lettersValue  = `(\p{L}[\p{L} \t]*)`
	wordValue     = `(\p{L}+)`
	docNumberTok  = `([A-Z0-9]*\d[A-Z0-9]*)`
	addressValue  = `([\p{L}\d][\p{L}\d \t,.]*)`
	labelSep      = `[:\s]+`
	dateLabelSep  = `[.:\s]*`
	numberLabelSp = `[\s.:#]*`
)

// DefaultRules returns the built-in rule table, most specific rule first per kind.
// DocumentType is matched against a closed vocabulary and has no rules.
func DefaultRules() map[FieldKind][]Rule {
	return map[FieldKind][]Rule{
		Name: {
			NewRule("name.first_given", `\b(?:First\s+name|Given\s+names?)`+labelSep+lettersValue),
			NewRule("name.label", `\b(?:Name|Nome)`+labelSep+lettersValue).
				notAfter(`\b(?:last|family|first|given)[ \t]*`),
		},
		Surname: {
			NewRule("surname.label", `\b(?:Surname|Cognome)`+labelSep+lettersValue),
			NewRule("surname.last_family", `\b(?:Last\s+name|Family\s+name)`+labelSep+lettersValue),
		},
		DateOfBirth: {
			NewRule("dob.label", `\b(?:Date\s+of\s+Birth|Data\s+di\s+Nascita|Birth\s+Date|DOB|Nat[oa]\s+il)`+dateLabelSep+datePattern),
			NewRule("dob.born", `\b(?:Born|Nat[oa])(?:\s+(?:on|il))?`+dateLabelSep+datePattern),
			NewRule("dob.any_date", datePattern),
		},
		DocumentNumber: {
			NewRule("docnum.label", `\b(?:Document\s+Number|Numero\s+(?:di\s+)?Documento|ID\s+Number|Card\s+Number|Passport\s+Number)`+numberLabelSp+docNumberTok),
			NewRule("docnum.short_label", `\b(?:Document\s+No|Passport\s+No|Doc)\b`+numberLabelSp+docNumberTok),
			NewRule("docnum.abbrev", `\b(?:Nr|No|Num|Numero)\b`+numberLabelSp+docNumberTok),
			NewRule("docnum.generic", `([A-Z]{2}\d{6,7})`),
		},
		ExpiryDate: {
			NewRule("expiry.label", `\b(?:Expiry\s+Date|Expiration\s+Date|Date\s+of\s+Expiry|Data\s+di\s+Scadenza|Valid\s+Until|Scadenza|Expiry|SCAD)`+dateLabelSep+datePattern),
			NewRule("expiry.verb", `\b(?:Expires|Scade|Valid\s+to)(?:\s+(?:on|il))?`+dateLabelSep+datePattern),
		},
		Nationality: {
			NewRule("nationality.label", `\b(?:Nationality|Nazionalit[àa]|Cittadinanza)`+labelSep+wordValue),
			NewRule("nationality.nation", `\b(?:Nation|Nazione)\b`+labelSep+wordValue),
			NewWholeMatchRule("nationality.token", `\b(?:ITALIANA|ITALIANO|ITALIAN|ITA|ESPAÑOLA|ESPAÑOL|ESP|FRANÇAISE|FRANCESE|FRA)\b`),
		},
		Address: {
			NewRule("address.label", `\b(?:Address|Indirizzo|Residenza|Residence)`+labelSep+addressValue),
		},
	}
}

// documentTypeLabel is one entry of the closed document type vocabulary
type documentTypeLabel struct {
	Label   string
	Aliases []string
}

var documentTypes = []documentTypeLabel{
	{Label: "IDENTITY CARD"},
	{Label: "PASSPORT", Aliases: []string{"PASSAPORTO"}},
	{Label: "DRIVER LICENSE", Aliases: []string{"DRIVER'S LICENSE", "DRIVING LICENCE"}},
	{Label: "CARTA D'IDENTITÀ", Aliases: []string{"CARTA D'IDENTITA", "CARTA DI IDENTITÀ", "CARTA DI IDENTITA"}},
	{Label: "PATENTE"},
}

// matchDocumentType returns the first known label contained in text.
func matchDocumentType(text string) Field {
	upper := strings.ToUpper(text)
	for _, t := range documentTypes {
		if strings.Contains(upper, t.Label) {
			return Found(t.Label)
		}
		for _, alias := range t.Aliases {
			if strings.Contains(upper, alias) {
				return Found(t.Label)
			}
		}
	}
	return UnknownType
}
