package mapdata

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the case status of a missing-person record. StatusAll is only
// meaningful as a filter value.
type Status string

const (
	StatusMissing       Status = "missing"
	StatusFound         Status = "found"
	StatusInvestigating Status = "investigating"
	StatusClosed        Status = "closed"
	StatusAll           Status = "all"
)

var filterStatuses = []Status{
	StatusMissing,
	StatusFound,
	StatusInvestigating,
	StatusClosed,
	StatusAll,
}

// FilterStatuses lists the values offered by the status control.
func FilterStatuses() []Status {
	out := make([]Status, len(filterStatuses))
	copy(out, filterStatuses)
	return out
}

// ParseStatus canonicalizes a status string. Unknown values are rejected.
func ParseStatus(s string) (Status, error) {
	v := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range filterStatuses {
		if st == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Days is the recency window in days. DaysAll disables the window.
type Days int

const DaysAll Days = 0

// ParseDays accepts a positive integer or "all".
func ParseDays(s string) (Days, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return DaysAll, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid days window %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("days window must be positive, got %d", n)
	}
	return Days(n), nil
}

func (d Days) String() string {
	if d <= DaysAll {
		return "all"
	}
	return strconv.Itoa(int(d))
}

func (d Days) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Days) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	v, err := ParseDays(raw)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// FilterState is the query currently driving the markers fetch and render.
type FilterState struct {
	Status         Status `json:"status"`
	Days           Days   `json:"days"`
	Search         string `json:"search"`
	ShowSightings  bool   `json:"show_sightings"`
	ShowMinorsOnly bool   `json:"show_minors_only"`
	ShowClusters   bool   `json:"show_clusters"`
}

// DefaultFilters returns the documented reset values.
func DefaultFilters() FilterState {
	return FilterState{
		Status:         StatusMissing,
		Days:           30,
		Search:         "",
		ShowSightings:  true,
		ShowMinorsOnly: false,
		ShowClusters:   true,
	}
}
