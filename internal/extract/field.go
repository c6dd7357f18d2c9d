// Package extract turns raw OCR text from identity documents into structured records.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldKind identifies one slot of a DocumentRecord
type FieldKind int

const (
	DocumentType FieldKind = iota
	Name
	Surname
	DateOfBirth
	DocumentNumber
	ExpiryDate
	Nationality
	Address

	fieldKindCount
)

var fieldKindNames = [fieldKindCount]string{
	DocumentType:   "document_type",
	Name:           "name",
	Surname:        "surname",
	DateOfBirth:    "date_of_birth",
	DocumentNumber: "document_number",
	ExpiryDate:     "expiry_date",
	Nationality:    "nationality",
	Address:        "address",
}

// String returns the stable machine name of the kind
func (k FieldKind) String() string {
	if k < 0 || k >= fieldKindCount {
		return fmt.Sprintf("field(%d)", int(k))
	}
	return fieldKindNames[k]
}

// ParseFieldKind resolves a stable name back to its kind
func ParseFieldKind(s string) (FieldKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range fieldKindNames {
		if name == s {
			return FieldKind(k), true
		}
	}
	return 0, false
}

// AllFieldKinds returns every kind in display order
func AllFieldKinds() []FieldKind {
	kinds := make([]FieldKind, 0, fieldKindCount)
	for k := FieldKind(0); k < fieldKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Status describes whether a field was extracted
type Status int

const (
	StatusNotFound Status = iota
	StatusFound
	StatusUnknown // document type outside the known vocabulary
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusUnknown:
		return "unknown"
	default:
		return "not_found"
	}
}

// ParseStatus is the inverse of Status.String; anything unrecognized is StatusNotFound
func ParseStatus(s string) Status {
	switch s {
	case "found":
		return StatusFound
	case "unknown":
		return StatusUnknown
	default:
		return StatusNotFound
	}
}

// Field is the extraction outcome of a single FieldKind.
// The zero value is NotFound.
type Field struct {
	status Status
	value  string
}

var (
	// NotFound marks a field no rule could extract
	NotFound = Field{status: StatusNotFound}
	// UnknownType marks a document type outside the known vocabulary
	UnknownType = Field{status: StatusUnknown}
)

// Found builds a found field. Whitespace-only values collapse to NotFound.
func Found(v string) Field {
	v = strings.TrimSpace(v)
	if v == "" {
		return NotFound
	}
	return Field{status: StatusFound, value: v}
}

// Status returns the field status
func (f Field) Status() Status { return f.status }

// IsFound reports whether the field holds an extracted value
func (f Field) IsFound() bool { return f.status == StatusFound }

// Value returns the extracted value, empty unless found
func (f Field) Value() string { return f.value }

// String renders the field for display
func (f Field) String() string {
	switch f.status {
	case StatusFound:
		return f.value
	case StatusUnknown:
		return "Unknown"
	default:
		return "Not found"
	}
}

type fieldJSON struct {
	Status string `json:"status"`
	Value  string `json:"value,omitempty"`
}

// MarshalJSON encodes the field as {"status": ..., "value": ...}
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(fieldJSON{Status: f.status.String(), Value: f.value})
}

// UnmarshalJSON decodes the field, normalizing inconsistent input to NotFound
func (f *Field) UnmarshalJSON(data []byte) error {
	var raw fieldJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = RestoreField(ParseStatus(raw.Status), raw.Value)
	return nil
}

// RestoreField rebuilds a persisted field, normalizing inconsistent input to NotFound
func RestoreField(status Status, value string) Field {
	switch status {
	case StatusFound:
		return Found(value)
	case StatusUnknown:
		return UnknownType
	default:
		return NotFound
	}
}
