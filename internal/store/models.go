package store

import (
	"time"

	"github.com/gmsas95/docscan/internal/extract"
)

// ScanBatch is one persisted batch run
type ScanBatch struct {
	ID         string       `gorm:"primaryKey" json:"id"`
	Source     string       `json:"source"` // cli, api, watch
	Total      int          `json:"total"`
	Success    int          `json:"success"`
	Failed     int          `json:"failed"`
	DurationMs int64        `json:"duration_ms"`
	CreatedAt  time.Time    `gorm:"index" json:"created_at"`
	Records    []ScanRecord `json:"records,omitempty" gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE"`
}

// FieldValue is a persisted extract.Field
type FieldValue struct {
	Value  string `json:"value,omitempty"`
	Status string `json:"status"`
}

// ScanRecord is one item of a batch. Items whose OCR failed have
// HasRecord false and carry the error instead of field values.
type ScanRecord struct {
	ID        string `gorm:"primaryKey" json:"id"`
	BatchID   string `gorm:"index:idx_batch_item" json:"batch_id"`
	ItemIndex int    `gorm:"index:idx_batch_item" json:"index"`
	Source    string `json:"source"`
	HasRecord bool   `json:"has_record"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	RawText   string `gorm:"type:text" json:"raw_text"`

	DocumentType   FieldValue `gorm:"embedded;embeddedPrefix:document_type_" json:"document_type"`
	Name           FieldValue `gorm:"embedded;embeddedPrefix:name_" json:"name"`
	Surname        FieldValue `gorm:"embedded;embeddedPrefix:surname_" json:"surname"`
	DateOfBirth    FieldValue `gorm:"embedded;embeddedPrefix:date_of_birth_" json:"date_of_birth"`
	DocumentNumber FieldValue `gorm:"embedded;embeddedPrefix:document_number_" json:"document_number"`
	ExpiryDate     FieldValue `gorm:"embedded;embeddedPrefix:expiry_date_" json:"expiry_date"`
	Nationality    FieldValue `gorm:"embedded;embeddedPrefix:nationality_" json:"nationality"`
	Address        FieldValue `gorm:"embedded;embeddedPrefix:address_" json:"address"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (r *ScanRecord) slot(kind extract.FieldKind) *FieldValue {
	switch kind {
	case extract.DocumentType:
		return &r.DocumentType
	case extract.Name:
		return &r.Name
	case extract.Surname:
		return &r.Surname
	case extract.DateOfBirth:
		return &r.DateOfBirth
	case extract.DocumentNumber:
		return &r.DocumentNumber
	case extract.ExpiryDate:
		return &r.ExpiryDate
	case extract.Nationality:
		return &r.Nationality
	case extract.Address:
		return &r.Address
	}
	return nil
}

func (r *ScanRecord) setRecord(rec extract.DocumentRecord) {
	r.HasRecord = true
	r.RawText = rec.RawText()
	for _, nf := range rec.Fields() {
		if s := r.slot(nf.Kind); s != nil {
			*s = FieldValue{Value: nf.Field.Value(), Status: nf.Field.Status().String()}
		}
	}
}

// Record rebuilds the extracted record. ok is false for failed items.
func (r *ScanRecord) Record() (rec extract.DocumentRecord, ok bool) {
	if !r.HasRecord {
		return extract.DocumentRecord{}, false
	}
	fields := make(map[extract.FieldKind]extract.Field)
	for _, kind := range extract.AllFieldKinds() {
		s := r.slot(kind)
		fields[kind] = extract.RestoreField(extract.ParseStatus(s.Status), s.Value)
	}
	return extract.RestoreRecord(r.ItemIndex, r.RawText, fields), true
}

// DocumentRecords returns the rebuilt records of a batch in item order
func (b *ScanBatch) DocumentRecords() []extract.DocumentRecord {
	out := make([]extract.DocumentRecord, 0, len(b.Records))
	for i := range b.Records {
		if rec, ok := b.Records[i].Record(); ok {
			out = append(out, rec)
		}
	}
	return out
}
