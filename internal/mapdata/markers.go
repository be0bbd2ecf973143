package mapdata

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type MarkerKind string

const (
	KindMissingPerson MarkerKind = "missing_person"
	KindSighting      MarkerKind = "sighting"
)

// MissingPersonMarker is a case as listed by the markers endpoint.
type MissingPersonMarker struct {
	ID               int64     `json:"id"`
	Lat              float64   `json:"lat"`
	Lng              float64   `json:"lng"`
	Name             string    `json:"name"`
	Age              *int      `json:"age,omitempty"`
	Gender           *string   `json:"gender,omitempty"`
	Status           Status    `json:"status"`
	CaseNumber       *string   `json:"case_number,omitempty"`
	LastSeenLocation string    `json:"last_seen_location"`
	LastSeenDate     Timestamp `json:"last_seen_date"`
	DaysMissing      int       `json:"days_missing"`
	IsMinor          bool      `json:"is_minor"`
	IsVerified       bool      `json:"is_verified"`
	PhotoURL         *string   `json:"photo_url,omitempty"`
	SightingCount    int       `json:"sighting_count"`
	ViewCount        int       `json:"view_count"`
	Description      *string   `json:"description,omitempty"`
}

// SightingMarker is a verified sighting report.
type SightingMarker struct {
	ID                int64     `json:"id"`
	Lat               float64   `json:"lat"`
	Lng               float64   `json:"lng"`
	MissingPersonID   int64     `json:"missing_person_id"`
	MissingPersonName string    `json:"missing_person_name"`
	SightingLocation  string    `json:"sighting_location"`
	SightingDate      Timestamp `json:"sighting_date"`
	Description       string    `json:"description"`
	PersonCondition   *string   `json:"person_condition,omitempty"`
	ReportedBy        *string   `json:"reported_by,omitempty"`
}

// MarkerRecord is one entry of the markers response: exactly one of Person or
// Sighting is set, matching Kind.
type MarkerRecord struct {
	Kind     MarkerKind
	Person   *MissingPersonMarker
	Sighting *SightingMarker
}

func PersonRecord(p MissingPersonMarker) MarkerRecord {
	return MarkerRecord{Kind: KindMissingPerson, Person: &p}
}

func SightingRecord(s SightingMarker) MarkerRecord {
	return MarkerRecord{Kind: KindSighting, Sighting: &s}
}

// IsMinor reports the minor flag. Only missing-person records carry one.
func (r MarkerRecord) IsMinor() bool {
	return r.Kind == KindMissingPerson && r.Person != nil && r.Person.IsMinor
}

// Position returns the record coordinates.
func (r MarkerRecord) Position() (lat, lng float64, err error) {
	switch {
	case r.Kind == KindMissingPerson && r.Person != nil:
		return r.Person.Lat, r.Person.Lng, nil
	case r.Kind == KindSighting && r.Sighting != nil:
		return r.Sighting.Lat, r.Sighting.Lng, nil
	default:
		return 0, 0, fmt.Errorf("marker record of kind %q has no payload", r.Kind)
	}
}

func (r *MarkerRecord) UnmarshalJSON(b []byte) error {
	var head struct {
		Type MarkerKind `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}

	*r = MarkerRecord{Kind: head.Type}
	switch head.Type {
	case KindMissingPerson:
		var p MissingPersonMarker
		if err := json.Unmarshal(b, &p); err != nil {
			return fmt.Errorf("decode missing person marker: %w", err)
		}
		r.Person = &p
	case KindSighting:
		var s SightingMarker
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode sighting marker: %w", err)
		}
		r.Sighting = &s
	}
	// Unknown kinds are kept without a payload; the renderer skips them.
	return nil
}

// DecodeMarker decodes one entry of the markers response. When the payload is
// malformed it returns the error together with a record that keeps the kind
// but has no payload, which the renderer counts as skipped.
func DecodeMarker(raw []byte) (MarkerRecord, error) {
	var rec MarkerRecord
	if err := rec.UnmarshalJSON(raw); err != nil {
		var head struct {
			Type MarkerKind `json:"type"`
		}
		_ = json.Unmarshal(raw, &head)
		return MarkerRecord{Kind: head.Type}, err
	}
	return rec, nil
}

func (r MarkerRecord) MarshalJSON() ([]byte, error) {
	switch {
	case r.Kind == KindMissingPerson && r.Person != nil:
		return json.Marshal(struct {
			Type MarkerKind `json:"type"`
			*MissingPersonMarker
		}{r.Kind, r.Person})
	case r.Kind == KindSighting && r.Sighting != nil:
		return json.Marshal(struct {
			Type MarkerKind `json:"type"`
			*SightingMarker
		}{r.Kind, r.Sighting})
	default:
		return json.Marshal(map[string]any{"type": r.Kind})
	}
}

// Timestamp decodes the backend's ISO-8601 timestamps, which are emitted
// without a zone offset.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	raw := string(b)
	if raw == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format("2006-01-02T15:04:05"))
}
