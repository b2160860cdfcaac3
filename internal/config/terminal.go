package config

import (
	"fmt"
	"strconv"
	"time"
)

// TerminalConfig configures a punch terminal.
type TerminalConfig struct {
	APIURL    string
	Token     string
	UserID    string
	CompanyID string
	DataDir   string
	LogLevel  string
	TimeZone  *time.Location

	ProbeInterval time.Duration

	Location LocationConfig
	Camera   CameraConfig
}

// LocationConfig describes the fixed position reported by the terminal and
// the acceptance rules applied to it.
type LocationConfig struct {
	Latitude            *float64
	Longitude           *float64
	AccuracyMeters      float64
	Timeout             time.Duration
	MaxAccuracyMeters   float64
	DefaultRadiusMeters float64
}

type CameraConfig struct {
	FrontDir string
	Dir      string
	Quality  int
	MaxWidth int
}

func LoadTerminal() (*TerminalConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &TerminalConfig{
		APIURL:    getEnv("TERMINAL_API_URL", "http://localhost:8080"),
		Token:     getEnv("TERMINAL_TOKEN", ""),
		UserID:    getEnv("TERMINAL_USER_ID", ""),
		CompanyID: getEnv("TERMINAL_COMPANY_ID", ""),
		DataDir:   getEnv("TERMINAL_DATA_DIR", "./terminal-data"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}

	tz, err := time.LoadLocation(getEnv("APP_TIMEZONE", "America/Sao_Paulo"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	cfg.TimeZone = tz

	if cfg.ProbeInterval, err = time.ParseDuration(getEnv("TERMINAL_PROBE_INTERVAL", "30s")); err != nil {
		return nil, fmt.Errorf("invalid TERMINAL_PROBE_INTERVAL: %w", err)
	}

	if cfg.Location.Latitude, err = getEnvFloatPtr("TERMINAL_LATITUDE"); err != nil {
		return nil, err
	}
	if cfg.Location.Longitude, err = getEnvFloatPtr("TERMINAL_LONGITUDE"); err != nil {
		return nil, err
	}
	if cfg.Location.AccuracyMeters, err = strconv.ParseFloat(getEnv("TERMINAL_ACCURACY_METERS", "10"), 64); err != nil {
		return nil, fmt.Errorf("invalid TERMINAL_ACCURACY_METERS: %w", err)
	}
	if cfg.Location.Timeout, err = time.ParseDuration(getEnv("CAPTURE_LOCATION_TIMEOUT", "15s")); err != nil {
		return nil, fmt.Errorf("invalid CAPTURE_LOCATION_TIMEOUT: %w", err)
	}
	if cfg.Location.MaxAccuracyMeters, err = strconv.ParseFloat(getEnv("CAPTURE_MAX_ACCURACY_METERS", "150"), 64); err != nil {
		return nil, fmt.Errorf("invalid CAPTURE_MAX_ACCURACY_METERS: %w", err)
	}
	if cfg.Location.DefaultRadiusMeters, err = strconv.ParseFloat(getEnv("GEOFENCE_DEFAULT_RADIUS_METERS", "100"), 64); err != nil {
		return nil, fmt.Errorf("invalid GEOFENCE_DEFAULT_RADIUS_METERS: %w", err)
	}

	cfg.Camera = CameraConfig{
		FrontDir: getEnv("TERMINAL_CAMERA_FRONT_DIR", ""),
		Dir:      getEnv("TERMINAL_CAMERA_DIR", ""),
	}
	if cfg.Camera.Quality, err = strconv.Atoi(getEnv("CAPTURE_JPEG_QUALITY", "80")); err != nil {
		return nil, fmt.Errorf("invalid CAPTURE_JPEG_QUALITY: %w", err)
	}
	if cfg.Camera.MaxWidth, err = strconv.Atoi(getEnv("CAPTURE_MAX_WIDTH", "1280")); err != nil {
		return nil, fmt.Errorf("invalid CAPTURE_MAX_WIDTH: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate validates the terminal configuration
func (c *TerminalConfig) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("TERMINAL_TOKEN is required")
	}
	if c.UserID == "" {
		return fmt.Errorf("TERMINAL_USER_ID is required")
	}
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("TERMINAL_PROBE_INTERVAL must be positive")
	}
	if (c.Location.Latitude == nil) != (c.Location.Longitude == nil) {
		return fmt.Errorf("TERMINAL_LATITUDE and TERMINAL_LONGITUDE must be set together")
	}
	if c.Location.Timeout <= 0 {
		return fmt.Errorf("CAPTURE_LOCATION_TIMEOUT must be positive")
	}
	if c.Location.MaxAccuracyMeters <= 0 {
		return fmt.Errorf("CAPTURE_MAX_ACCURACY_METERS must be positive")
	}
	if c.Camera.FrontDir == "" && c.Camera.Dir == "" {
		return fmt.Errorf("TERMINAL_CAMERA_FRONT_DIR or TERMINAL_CAMERA_DIR is required")
	}
	if c.Camera.Quality < 1 || c.Camera.Quality > 100 {
		return fmt.Errorf("CAPTURE_JPEG_QUALITY must be between 1 and 100")
	}
	return nil
}
