// Package view turns map records into view-models and renders them with
// html/template. Callers never build markup by hand.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"findme/map-core/internal/mapdata"
)

const (
	Unknown        = "Unknown"
	AgeUnknown     = "Age unknown"
	dateLayout     = "Jan 2, 2006"
	dateTimeLayout = "Jan 2, 2006 3:04 PM"
)

type Badge struct {
	Label string `json:"label"`
	Class string `json:"class"`
}

// StatusBadge returns the badge for a case. Minors always get the alert
// badge; unknown statuses get none.
func StatusBadge(status mapdata.Status, isMinor bool) *Badge {
	if isMinor {
		return &Badge{Label: "MINOR ALERT", Class: "findme-status-minor"}
	}
	switch status {
	case mapdata.StatusMissing, mapdata.StatusFound, mapdata.StatusInvestigating, mapdata.StatusClosed:
		return &Badge{
			Label: strings.ToUpper(string(status)),
			Class: "findme-status-" + string(status),
		}
	default:
		return nil
	}
}

type Options struct {
	PlaceholderImage string
	PhoneRegion      string
	Location         *time.Location
}

// Views renders popups, the details modal and the statistics panel.
type Views struct {
	tmpl        *template.Template
	placeholder string
	region      string
	loc         *time.Location
}

func New(opts Options) (*Views, error) {
	t := template.New("findme")
	for _, src := range []string{tmplBadge, tmplPopups, tmplModal, tmplStatistics} {
		var err error
		t, err = t.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	region := strings.ToUpper(strings.TrimSpace(opts.PhoneRegion))
	if region == "" {
		region = "KE"
	}
	return &Views{
		tmpl:        t,
		placeholder: opts.PlaceholderImage,
		region:      region,
		loc:         loc,
	}, nil
}

func (v *Views) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := v.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (v *Views) formatDate(ts mapdata.Timestamp) string {
	if ts.IsZero() {
		return Unknown
	}
	return ts.In(v.loc).Format(dateLayout)
}

func (v *Views) formatDateTime(ts mapdata.Timestamp) string {
	if ts.IsZero() {
		return Unknown
	}
	return ts.In(v.loc).Format(dateTimeLayout)
}

// orUnknown returns the trimmed value or the literal fallback.
func orUnknown(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return Unknown
	}
	return strings.TrimSpace(*s)
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func (v *Views) titled(s *string) string {
	out := orUnknown(s)
	if out == Unknown {
		return out
	}
	// A Caser keeps state between calls, so each use gets its own.
	return cases.Title(language.English).String(out)
}

type PersonPopup struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	PhotoURL         string `json:"photo_url"`
	Badge            *Badge `json:"badge,omitempty"`
	AgeLine          string `json:"age_line"`
	Gender           string `json:"gender"`
	LastSeenLocation string `json:"last_seen_location"`
	DaysMissing      int    `json:"days_missing"`
	CaseNumber       string `json:"case_number,omitempty"`
	SightingCount    int    `json:"sighting_count"`
}

type SightingPopup struct {
	PersonName  string `json:"person_name"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	Condition   string `json:"condition,omitempty"`
	Description string `json:"description"`
}

func (v *Views) PersonPopupModel(m mapdata.MissingPersonMarker) PersonPopup {
	photo := optional(m.PhotoURL)
	if photo == "" {
		photo = v.placeholder
	}
	age := AgeUnknown
	if m.Age != nil && *m.Age > 0 {
		age = strconv.Itoa(*m.Age) + " years"
	}
	name := strings.TrimSpace(m.Name)
	if name == "" {
		name = Unknown
	}
	location := strings.TrimSpace(m.LastSeenLocation)
	if location == "" {
		location = Unknown
	}
	return PersonPopup{
		ID:               m.ID,
		Name:             name,
		PhotoURL:         photo,
		Badge:            StatusBadge(m.Status, m.IsMinor),
		AgeLine:          age,
		Gender:           v.titled(m.Gender),
		LastSeenLocation: location,
		DaysMissing:      m.DaysMissing,
		CaseNumber:       optional(m.CaseNumber),
		SightingCount:    m.SightingCount,
	}
}

func (v *Views) SightingPopupModel(s mapdata.SightingMarker) SightingPopup {
	name := strings.TrimSpace(s.MissingPersonName)
	if name == "" {
		name = Unknown
	}
	location := strings.TrimSpace(s.SightingLocation)
	if location == "" {
		location = Unknown
	}
	return SightingPopup{
		PersonName:  name,
		Location:    location,
		Date:        v.formatDate(s.SightingDate),
		Condition:   optional(s.PersonCondition),
		Description: strings.TrimSpace(s.Description),
	}
}

// Popup renders the popup markup for one marker record.
func (v *Views) Popup(rec mapdata.MarkerRecord) (string, error) {
	switch {
	case rec.Kind == mapdata.KindMissingPerson && rec.Person != nil:
		return v.execute("popup_person", v.PersonPopupModel(*rec.Person))
	case rec.Kind == mapdata.KindSighting && rec.Sighting != nil:
		return v.execute("popup_sighting", v.SightingPopupModel(*rec.Sighting))
	default:
		return "", fmt.Errorf("no popup for marker kind %q", rec.Kind)
	}
}

type StatisticsPanel struct {
	ActiveCases   int               `json:"active_cases"`
	Found         int               `json:"found"`
	Investigating int               `json:"investigating"`
	Minors        int               `json:"minors"`
	Hotspots      []mapdata.Hotspot `json:"hotspots"`
}

func StatisticsModel(s mapdata.Statistics) StatisticsPanel {
	hotspots := make([]mapdata.Hotspot, 0, len(s.Hotspots))
	for _, h := range s.Hotspots {
		if strings.TrimSpace(h.Location) == "" {
			h.Location = Unknown
		}
		hotspots = append(hotspots, h)
	}
	return StatisticsPanel{
		ActiveCases:   s.ActiveCases,
		Found:         s.TotalFound,
		Investigating: s.TotalInvestigating,
		Minors:        s.Minors,
		Hotspots:      hotspots,
	}
}

func (v *Views) Statistics(s mapdata.Statistics) (StatisticsPanel, string, error) {
	m := StatisticsModel(s)
	html, err := v.execute("statistics", m)
	return m, html, err
}

// phoneLink formats a contact number for display and a tel: link. Numbers
// that do not parse are shown as entered with a digits-only link.
func (v *Views) phoneLink(raw string) (display string, href template.URL) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	num, err := phonenumbers.Parse(raw, v.region)
	if err == nil && phonenumbers.IsValidNumber(num) {
		e164 := phonenumbers.Format(num, phonenumbers.E164)
		return phonenumbers.Format(num, phonenumbers.INTERNATIONAL), template.URL("tel:" + e164)
	}
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || (r == '+' && b.Len() == 0) {
			b.WriteRune(r)
		}
	}
	return raw, template.URL("tel:" + b.String())
}
