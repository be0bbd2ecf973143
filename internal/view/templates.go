package view

// Status badge

const tmplBadge = `
{{define "badge"}}{{if .}}<span class="findme-status-badge {{.Class}}">{{.Label}}</span>{{end}}{{end}}
`

// Marker popups

const tmplPopups = `
{{define "popup_person"}}<div class="findme-popup-container">
<div class="findme-popup-header">
<img src="{{.PhotoURL}}" alt="{{.Name}}" class="findme-popup-image">
{{template "badge" .Badge}}
</div>
<div class="findme-popup-body">
<h3 class="findme-popup-name">{{.Name}}</h3>
<p class="findme-popup-info"><i class="fas fa-user"></i> {{.AgeLine}} &bull; {{.Gender}}</p>
<p class="findme-popup-info"><i class="fas fa-map-marker-alt"></i> {{.LastSeenLocation}}</p>
<p class="findme-popup-info"><i class="fas fa-clock"></i> {{.DaysMissing}} days missing</p>
{{- if .CaseNumber}}
<p class="findme-popup-case">Case #{{.CaseNumber}}</p>
{{- end}}
{{- if gt .SightingCount 0}}
<p class="findme-popup-sightings"><i class="fas fa-eye"></i> {{.SightingCount}} verified sightings</p>
{{- end}}
</div>
<div class="findme-popup-footer">
<button class="findme-popup-btn" id="findme-view-details-{{.ID}}" data-person-id="{{.ID}}"><i class="fas fa-info-circle"></i> View Full Details</button>
</div>
</div>{{end}}

{{define "popup_sighting"}}<div class="findme-popup-container">
<div class="findme-popup-body">
<h3 class="findme-popup-name"><i class="fas fa-eye"></i> Sighting Report</h3>
<p class="findme-popup-info"><strong>Person:</strong> {{.PersonName}}</p>
<p class="findme-popup-info"><i class="fas fa-map-marker-alt"></i> {{.Location}}</p>
<p class="findme-popup-info"><i class="fas fa-calendar"></i> {{.Date}}</p>
{{- if .Condition}}
<p class="findme-popup-info"><strong>Condition:</strong> {{.Condition}}</p>
{{- end}}
<p class="findme-popup-description">{{.Description}}</p>
</div>
</div>{{end}}
`

// Details modal

const tmplModal = `
{{define "modal"}}<div class="findme-modal-header-content">
<h2>{{.Title}}</h2>
{{template "badge" .Badge}}
</div>

<div class="findme-modal-photos">
{{- range .Photos}}
<img src="{{.URL}}" alt="{{.Alt}}" class="findme-modal-photo">
{{- end}}
</div>

<div class="findme-modal-section">
<h3><i class="fas fa-user"></i> Personal Information</h3>
<div class="findme-info-grid">
{{- range .Info}}
<div class="findme-info-item"><span class="findme-info-label">{{.Label}}:</span> <span class="findme-info-value">{{.Value}}</span></div>
{{- end}}
</div>
</div>

<div class="findme-modal-section">
<h3><i class="fas fa-map-marker-alt"></i> Last Known Information</h3>
<p><strong>Last Seen:</strong> {{.LastSeen}}</p>
<p><strong>Location:</strong> {{.Location}}</p>
{{- if .Wearing}}
<p><strong>Wearing:</strong> {{.Wearing}}</p>
{{- end}}
{{- if .Circumstances}}
<p><strong>Circumstances:</strong> {{.Circumstances}}</p>
{{- end}}
</div>
{{- if .Features}}

<div class="findme-modal-section findme-modal-features">
<h3><i class="fas fa-fingerprint"></i> Distinguishing Features</h3>
<p>{{.Features}}</p>
</div>
{{- end}}
{{- if .Sightings}}

<div class="findme-modal-section findme-modal-sightings">
<h3><i class="fas fa-eye"></i> Verified Sightings ({{len .Sightings}})</h3>
{{- range .Sightings}}
<div class="findme-sighting-card">
<p><strong>Location:</strong> {{.Location}}</p>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Description:</strong> {{.Description}}</p>
{{- if .Condition}}
<p><strong>Condition:</strong> {{.Condition}}</p>
{{- end}}
</div>
{{- end}}
</div>
{{- end}}

<div class="findme-modal-section">
<h3><i class="fas fa-phone"></i> Contact Information</h3>
{{- with .Contact}}
{{- if .Name}}
<p><strong>Contact:</strong> {{.Name}}</p>
{{- end}}
{{- if .Phone}}
<p><strong>Phone:</strong> <a href="{{.PhoneHref}}">{{.Phone}}</a></p>
{{- end}}
{{- if .Email}}
<p><strong>Email:</strong> <a href="{{.EmailHref}}">{{.Email}}</a></p>
{{- end}}
{{- if .CaseNumber}}
<p><strong>Case Number:</strong> {{.CaseNumber}}</p>
{{- end}}
{{- end}}
</div>{{end}}
`

// Statistics panel

const tmplStatistics = `
{{define "statistics"}}<div class="findme-stats-grid">
<div class="findme-stat"><span id="findmeStatActiveCases">{{.ActiveCases}}</span> Active cases</div>
<div class="findme-stat"><span id="findmeStatFound">{{.Found}}</span> Found</div>
<div class="findme-stat"><span id="findmeStatInvestigating">{{.Investigating}}</span> Investigating</div>
<div class="findme-stat"><span id="findmeStatMinors">{{.Minors}}</span> Minors</div>
</div>
<div id="findmeHotspotsList">
{{- range .Hotspots}}
<div class="findme-hotspot-item"><span class="findme-hotspot-location">{{.Location}}</span> <span class="findme-hotspot-count">{{.Count}} cases</span></div>
{{- else}}
<p class="findme-loading-text">No hotspot data available</p>
{{- end}}
</div>{{end}}
`
