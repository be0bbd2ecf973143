package mapdata

// PersonDetail is the full record shown in the details modal.
type PersonDetail struct {
	ID                     int64      `json:"id"`
	FullName               string     `json:"full_name"`
	Age                    *int       `json:"age,omitempty"`
	Gender                 *string    `json:"gender,omitempty"`
	DateOfBirth            *string    `json:"date_of_birth,omitempty"`
	Height                 *string    `json:"height,omitempty"`
	Weight                 *string    `json:"weight,omitempty"`
	HairColor              *string    `json:"hair_color,omitempty"`
	EyeColor               *string    `json:"eye_color,omitempty"`
	SkinTone               *string    `json:"skin_tone,omitempty"`
	DistinguishingFeatures *string    `json:"distinguishing_features,omitempty"`
	LastSeenLocation       string     `json:"last_seen_location"`
	LastSeenDate           Timestamp  `json:"last_seen_date"`
	LastSeenWearing        *string    `json:"last_seen_wearing,omitempty"`
	Circumstances          *string    `json:"circumstances,omitempty"`
	Latitude               *float64   `json:"latitude,omitempty"`
	Longitude              *float64   `json:"longitude,omitempty"`
	Status                 Status     `json:"status"`
	CaseNumber             *string    `json:"case_number,omitempty"`
	IsMinor                bool       `json:"is_minor"`
	IsVerified             bool       `json:"is_verified"`
	ContactName            *string    `json:"contact_name,omitempty"`
	ContactPhone           *string    `json:"contact_phone,omitempty"`
	ContactEmail           *string    `json:"contact_email,omitempty"`
	PhotoURL               *string    `json:"photo_url,omitempty"`
	Photos                 []Photo    `json:"photos"`
	Sightings              []Sighting `json:"sightings"`
	ViewCount              int        `json:"view_count"`
}

type Photo struct {
	URL       string  `json:"url"`
	IsPrimary bool    `json:"is_primary"`
	Caption   *string `json:"caption,omitempty"`
}

type Sighting struct {
	ID          int64     `json:"id"`
	Location    string    `json:"location"`
	Lat         *float64  `json:"lat,omitempty"`
	Lng         *float64  `json:"lng,omitempty"`
	Date        Timestamp `json:"date"`
	Description string    `json:"description"`
	Condition   *string   `json:"condition,omitempty"`
}

// Statistics are the aggregate counts shown in the statistics panel.
type Statistics struct {
	TotalMissing       int       `json:"total_missing"`
	TotalFound         int       `json:"total_found"`
	TotalInvestigating int       `json:"total_investigating"`
	ActiveCases        int       `json:"active_cases"`
	RecentCases        int       `json:"recent_cases"`
	Minors             int       `json:"minors"`
	Hotspots           []Hotspot `json:"hotspots"`
}

type Hotspot struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// GeocodedLocation is the result of a free-text location search.
type GeocodedLocation struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"display_name"`
}

// NearbyCase is a missing person within a search radius.
type NearbyCase struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	DistanceKm       float64 `json:"distance"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	Status           Status  `json:"status"`
	LastSeenLocation string  `json:"last_seen_location"`
}
