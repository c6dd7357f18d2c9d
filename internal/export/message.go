// Package export hands extracted records to the outside world: a
// prefilled WhatsApp link for the front desk, or a spreadsheet.
// Nothing here sends anything; callers open or deliver the result.
package export

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gmsas95/docscan/internal/config"
	apperrors "github.com/gmsas95/docscan/internal/errors"
	"github.com/gmsas95/docscan/internal/extract"
)

// DefaultTitle heads each record in a message
const DefaultTitle = "ID Card"

var labels = map[extract.FieldKind]string{
	extract.DocumentType:   "Document Type",
	extract.Name:           "Name",
	extract.Surname:        "Surname",
	extract.DateOfBirth:    "Birth Date",
	extract.DocumentNumber: "Document Number",
	extract.ExpiryDate:     "Expiry Date",
	extract.Nationality:    "Nationality",
	extract.Address:        "Address",
}

// Label returns the human label of a field kind
func Label(kind extract.FieldKind) string {
	if l, ok := labels[kind]; ok {
		return l
	}
	return kind.String()
}

// FormatMessage renders records as plain text, one "label: value" line
// per field under a "<title> #<index>" header, records separated by a
// blank line.
func FormatMessage(title string, records []extract.DocumentRecord) string {
	if title == "" {
		title = DefaultTitle
	}

	var sb strings.Builder
	for i, rec := range records {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s #%d:\n", title, rec.Index())
		for _, nf := range rec.Fields() {
			fmt.Fprintf(&sb, "%s: %s\n", Label(nf.Kind), nf.Field)
		}
	}
	return sb.String()
}

// NormalizeNumber strips formatting from a phone number, leaving the
// digits wa.me expects. International numbers have 7 to 15 digits.
func NormalizeNumber(number string) (string, error) {
	var digits strings.Builder
	for _, r := range number {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", apperrors.WrapAs(apperrors.ErrInvalidNumber, fmt.Errorf("unexpected %q in %q", r, number))
		}
	}

	d := digits.String()
	if len(d) < 7 || len(d) > 15 {
		return "", apperrors.WrapAs(apperrors.ErrInvalidNumber, fmt.Errorf("%q has %d digits", number, len(d)))
	}
	return d, nil
}

// WhatsAppLink builds the click-to-chat URL for message
func WhatsAppLink(number, message string) (string, error) {
	digits, err := NormalizeNumber(number)
	if err != nil {
		return "", err
	}
	// QueryEscape turns spaces into '+', which WhatsApp shows literally
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://wa.me/" + digits + "?text=" + text, nil
}

// Message is a ready-to-open export
type Message struct {
	Text string `json:"message"`
	URL  string `json:"url"`
}

// Exporter applies the configured recipient and title
type Exporter struct {
	number string
	title  string
}

func NewExporter(cfg config.ExportConfig) *Exporter {
	return &Exporter{number: cfg.WhatsAppNumber, title: cfg.Title}
}

// WhatsApp formats records and links them to the configured number.
// A non-empty number overrides it.
func (e *Exporter) WhatsApp(records []extract.DocumentRecord, number string) (*Message, error) {
	if len(records) == 0 {
		return nil, apperrors.ErrNothingToExport
	}
	if number == "" {
		number = e.number
	}
	if number == "" {
		return nil, apperrors.WrapAs(apperrors.ErrInvalidNumber, fmt.Errorf("no recipient configured"))
	}

	text := FormatMessage(e.title, records)
	link, err := WhatsAppLink(number, text)
	if err != nil {
		return nil, err
	}
	return &Message{Text: text, URL: link}, nil
}
