package view

import (
	"html/template"
	"strconv"
	"strings"

	"findme/map-core/internal/mapdata"
)

type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type PhotoView struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

type SightingView struct {
	Location    string `json:"location"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Condition   string `json:"condition,omitempty"`
}

type ContactView struct {
	Name       string       `json:"name,omitempty"`
	Phone      string       `json:"phone,omitempty"`
	PhoneHref  template.URL `json:"phone_href,omitempty"`
	Email      string       `json:"email,omitempty"`
	EmailHref  string       `json:"email_href,omitempty"`
	CaseNumber string       `json:"case_number,omitempty"`
}

// PersonModal is the details modal view-model. Optional sections are empty
// when the record has no data for them and are then omitted from the markup.
type PersonModal struct {
	PersonID      int64          `json:"person_id"`
	Title         string         `json:"title"`
	Badge         *Badge         `json:"badge,omitempty"`
	Photos        []PhotoView    `json:"photos"`
	Info          []Field        `json:"info"`
	LastSeen      string         `json:"last_seen"`
	Location      string         `json:"location"`
	Wearing       string         `json:"wearing,omitempty"`
	Circumstances string         `json:"circumstances,omitempty"`
	Features      string         `json:"features,omitempty"`
	Sightings     []SightingView `json:"sightings,omitempty"`
	Contact       ContactView    `json:"contact"`
}

func (v *Views) PersonModalModel(p mapdata.PersonDetail) PersonModal {
	title := strings.TrimSpace(p.FullName)
	if title == "" {
		title = Unknown
	}

	photos := make([]PhotoView, 0, len(p.Photos))
	for _, ph := range p.Photos {
		if strings.TrimSpace(ph.URL) == "" {
			continue
		}
		photos = append(photos, PhotoView{URL: ph.URL, Alt: title})
	}
	if len(photos) == 0 {
		url := optional(p.PhotoURL)
		if url == "" {
			url = v.placeholder
		}
		photos = append(photos, PhotoView{URL: url, Alt: title})
	}

	age := Unknown
	if p.Age != nil && *p.Age > 0 {
		age = strconv.Itoa(*p.Age)
	}

	location := strings.TrimSpace(p.LastSeenLocation)
	if location == "" {
		location = Unknown
	}

	var sightings []SightingView
	for _, s := range p.Sightings {
		loc := strings.TrimSpace(s.Location)
		if loc == "" {
			loc = Unknown
		}
		sightings = append(sightings, SightingView{
			Location:    loc,
			Date:        v.formatDate(s.Date),
			Description: strings.TrimSpace(s.Description),
			Condition:   optional(s.Condition),
		})
	}

	contact := ContactView{
		Name:       optional(p.ContactName),
		Email:      optional(p.ContactEmail),
		CaseNumber: optional(p.CaseNumber),
	}
	contact.Phone, contact.PhoneHref = v.phoneLink(optional(p.ContactPhone))
	if contact.Email != "" {
		contact.EmailHref = "mailto:" + contact.Email
	}

	return PersonModal{
		PersonID: p.ID,
		Title:    title,
		Badge:    StatusBadge(p.Status, p.IsMinor),
		Photos:   photos,
		Info: []Field{
			{Label: "Age", Value: age},
			{Label: "Gender", Value: v.titled(p.Gender)},
			{Label: "Height", Value: orUnknown(p.Height)},
			{Label: "Weight", Value: orUnknown(p.Weight)},
			{Label: "Hair Color", Value: v.titled(p.HairColor)},
			{Label: "Eye Color", Value: v.titled(p.EyeColor)},
		},
		LastSeen:      v.formatDateTime(p.LastSeenDate),
		Location:      location,
		Wearing:       optional(p.LastSeenWearing),
		Circumstances: optional(p.Circumstances),
		Features:      optional(p.DistinguishingFeatures),
		Sightings:     sightings,
		Contact:       contact,
	}
}

// PersonModal builds and renders the details modal body.
func (v *Views) PersonModal(p mapdata.PersonDetail) (PersonModal, string, error) {
	m := v.PersonModalModel(p)
	html, err := v.execute("modal", m)
	return m, html, err
}
