// Package config holds the map view service configuration.
//
// Values are resolved in order: defaults, optional YAML file
// (FINDME_CONFIG_FILE), optional .env file, then environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCenterLat        = -1.286389
	DefaultCenterLng        = 36.817223
	DefaultZoom             = 12
	DefaultMinZoom          = 6
	DefaultMaxZoom          = 18
	DefaultTileURL          = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution      = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a>`
	DefaultClusterRadius    = 50
	DefaultRefreshInterval  = 30 * time.Second
	DefaultToastDuration    = 4 * time.Second
	DefaultFitPadding       = 0.1
	DefaultPopupMaxWidth    = 300
	DefaultLocateZoom       = 14
	DefaultPlaceholderImage = "/static/images/default_unknown.png"
	DefaultAPIBaseURL       = "http://localhost:5000"
	DefaultRequestTimeout   = 10 * time.Second
	DefaultRequestsPerSec   = 5.0
	DefaultRequestBurst     = 4
	DefaultHTTPAddr         = ":8082"
	DefaultLogLevel         = "info"
	DefaultPhoneRegion      = "KE"
)

// Map holds the surface and presentation constants.
type Map struct {
	CenterLat        float64       `yaml:"center_lat" validate:"latitude"`
	CenterLng        float64       `yaml:"center_lng" validate:"longitude"`
	Zoom             int           `yaml:"zoom" validate:"gtefield=MinZoom,ltefield=MaxZoom"`
	MinZoom          int           `yaml:"min_zoom" validate:"gte=0"`
	MaxZoom          int           `yaml:"max_zoom" validate:"gtefield=MinZoom,lte=24"`
	TileURL          string        `yaml:"tile_url" validate:"required"`
	Attribution      string        `yaml:"attribution"`
	ClusterRadius    int           `yaml:"cluster_radius" validate:"gt=0"`
	RefreshInterval  time.Duration `yaml:"refresh_interval" validate:"gte=1s"`
	ToastDuration    time.Duration `yaml:"toast_duration" validate:"gt=0"`
	FitPadding       float64       `yaml:"fit_padding" validate:"gte=0,lte=1"`
	PopupMaxWidth    int           `yaml:"popup_max_width" validate:"gt=0"`
	LocateZoom       int           `yaml:"locate_zoom" validate:"gte=0"`
	PlaceholderImage string        `yaml:"placeholder_image" validate:"required"`
	PhoneRegion      string        `yaml:"phone_region" validate:"len=2"`
}

// API configures the client of the external FindMe REST API.
type API struct {
	BaseURL           string        `yaml:"base_url" validate:"required,url"`
	RequestTimeout    time.Duration `yaml:"request_timeout" validate:"gt=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int           `yaml:"burst" validate:"gte=1"`
	// SequenceResponses drops marker responses older than the newest rendered one.
	SequenceResponses bool `yaml:"sequence_responses"`
}

type Config struct {
	HTTPAddr string `yaml:"http_addr" validate:"required"`
	LogLevel string `yaml:"log_level"`
	// Locate, when set, is the fixed "lat,lng" reported by the locate control.
	Locate string `yaml:"locate"`
	Map    Map    `yaml:"map"`
	API    API    `yaml:"api"`
}

func Default() Config {
	return Config{
		HTTPAddr: DefaultHTTPAddr,
		LogLevel: DefaultLogLevel,
		Map: Map{
			CenterLat:        DefaultCenterLat,
			CenterLng:        DefaultCenterLng,
			Zoom:             DefaultZoom,
			MinZoom:          DefaultMinZoom,
			MaxZoom:          DefaultMaxZoom,
			TileURL:          DefaultTileURL,
			Attribution:      DefaultAttribution,
			ClusterRadius:    DefaultClusterRadius,
			RefreshInterval:  DefaultRefreshInterval,
			ToastDuration:    DefaultToastDuration,
			FitPadding:       DefaultFitPadding,
			PopupMaxWidth:    DefaultPopupMaxWidth,
			LocateZoom:       DefaultLocateZoom,
			PlaceholderImage: DefaultPlaceholderImage,
			PhoneRegion:      DefaultPhoneRegion,
		},
		API: API{
			BaseURL:           DefaultAPIBaseURL,
			RequestTimeout:    DefaultRequestTimeout,
			RequestsPerSecond: DefaultRequestsPerSec,
			Burst:             DefaultRequestBurst,
		},
	}
}

// Load resolves the configuration from the process environment.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("FINDME_CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("HTTP_ADDR", &cfg.HTTPAddr)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("FINDME_LOCATE", &cfg.Locate)

	float("FINDME_MAP_CENTER_LAT", &cfg.Map.CenterLat)
	float("FINDME_MAP_CENTER_LNG", &cfg.Map.CenterLng)
	num("FINDME_MAP_ZOOM", &cfg.Map.Zoom)
	num("FINDME_MAP_MIN_ZOOM", &cfg.Map.MinZoom)
	num("FINDME_MAP_MAX_ZOOM", &cfg.Map.MaxZoom)
	str("FINDME_MAP_TILE_URL", &cfg.Map.TileURL)
	str("FINDME_MAP_ATTRIBUTION", &cfg.Map.Attribution)
	num("FINDME_MAP_CLUSTER_RADIUS", &cfg.Map.ClusterRadius)
	dur("FINDME_MAP_REFRESH_INTERVAL", &cfg.Map.RefreshInterval)
	dur("FINDME_MAP_TOAST_DURATION", &cfg.Map.ToastDuration)
	float("FINDME_MAP_FIT_PADDING", &cfg.Map.FitPadding)
	num("FINDME_MAP_POPUP_MAX_WIDTH", &cfg.Map.PopupMaxWidth)
	num("FINDME_MAP_LOCATE_ZOOM", &cfg.Map.LocateZoom)
	str("FINDME_MAP_PLACEHOLDER_IMAGE", &cfg.Map.PlaceholderImage)
	str("FINDME_MAP_PHONE_REGION", &cfg.Map.PhoneRegion)

	str("FINDME_API_BASE_URL", &cfg.API.BaseURL)
	dur("FINDME_API_REQUEST_TIMEOUT", &cfg.API.RequestTimeout)
	float("FINDME_API_REQUESTS_PER_SECOND", &cfg.API.RequestsPerSecond)
	num("FINDME_API_BURST", &cfg.API.Burst)
	boolean("FINDME_API_SEQUENCE_RESPONSES", &cfg.API.SequenceResponses)

	return errors.Join(errs...)
}

// Validate checks ranges and cross-field constraints.
func Validate(cfg Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Locate != "" {
		if _, _, err := ParseLatLng(cfg.Locate); err != nil {
			return fmt.Errorf("invalid config: locate: %w", err)
		}
	}
	return nil
}

// ParseLatLng parses a "lat,lng" pair.
func ParseLatLng(s string) (lat, lng float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected \"lat,lng\", got %q", s)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, fmt.Errorf("coordinates out of range: %v,%v", lat, lng)
	}
	return lat, lng, nil
}
