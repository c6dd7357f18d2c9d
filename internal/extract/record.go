package extract

import (
	"encoding/json"
	"fmt"
)

// DocumentRecord is the immutable result of extracting one document.
// Every FieldKind always has a slot.
type DocumentRecord struct {
	index   int
	rawText string
	fields  [fieldKindCount]Field
}

// NamedField pairs a kind with its extracted value
type NamedField struct {
	Kind  FieldKind
	Field Field
}

// RestoreRecord rebuilds a record from persisted values.
// Kinds missing from fields resolve to NotFound, or UnknownType for DocumentType.
func RestoreRecord(index int, rawText string, fields map[FieldKind]Field) DocumentRecord {
	rec := DocumentRecord{index: index, rawText: rawText}
	rec.fields[DocumentType] = UnknownType
	for k, f := range fields {
		if k >= 0 && k < fieldKindCount {
			rec.fields[k] = f
		}
	}
	return rec
}

// Index returns the caller-supplied 1-based position in the batch
func (r DocumentRecord) Index() int { return r.index }

// RawText returns the OCR text the record was extracted from
func (r DocumentRecord) RawText() string { return r.rawText }

// Field returns the value extracted for kind
func (r DocumentRecord) Field(kind FieldKind) Field {
	if kind < 0 || kind >= fieldKindCount {
		return NotFound
	}
	return r.fields[kind]
}

// Fields returns every slot in AllFieldKinds order
func (r DocumentRecord) Fields() []NamedField {
	out := make([]NamedField, 0, fieldKindCount)
	for k := FieldKind(0); k < fieldKindCount; k++ {
		out = append(out, NamedField{Kind: k, Field: r.fields[k]})
	}
	return out
}

// FoundCount counts the fields holding an extracted value
func (r DocumentRecord) FoundCount() int {
	n := 0
	for _, f := range r.fields {
		if f.IsFound() {
			n++
		}
	}
	return n
}

func (r DocumentRecord) DocumentType() Field   { return r.fields[DocumentType] }
func (r DocumentRecord) Name() Field           { return r.fields[Name] }
func (r DocumentRecord) Surname() Field        { return r.fields[Surname] }
func (r DocumentRecord) DateOfBirth() Field    { return r.fields[DateOfBirth] }
func (r DocumentRecord) DocumentNumber() Field { return r.fields[DocumentNumber] }
func (r DocumentRecord) ExpiryDate() Field     { return r.fields[ExpiryDate] }
func (r DocumentRecord) Nationality() Field    { return r.fields[Nationality] }
func (r DocumentRecord) Address() Field        { return r.fields[Address] }

type recordJSON struct {
	Index   int              `json:"index"`
	Fields  map[string]Field `json:"fields"`
	RawText string           `json:"raw_text,omitempty"`
}

// MarshalJSON encodes every field under its stable name
func (r DocumentRecord) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		Index:   r.index,
		Fields:  make(map[string]Field, fieldKindCount),
		RawText: r.rawText,
	}
	for k := FieldKind(0); k < fieldKindCount; k++ {
		out.Fields[k.String()] = r.fields[k]
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a record produced by MarshalJSON
func (r *DocumentRecord) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	fields := make(map[FieldKind]Field, len(in.Fields))
	for name, f := range in.Fields {
		kind, ok := ParseFieldKind(name)
		if !ok {
			return fmt.Errorf("unknown field %q", name)
		}
		fields[kind] = f
	}
	*r = RestoreRecord(in.Index, in.RawText, fields)
	return nil
}
