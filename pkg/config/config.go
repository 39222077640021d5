// Package config provides configuration management for facegate.
// It loads configuration from YAML files with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all facegate configuration.
type Config struct {
	Camera      CameraConfig      `yaml:"camera"`
	Detection   DetectionConfig   `yaml:"detection"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Enrollment  EnrollmentConfig  `yaml:"enrollment"`
	Storage     StorageConfig     `yaml:"storage"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// CameraConfig holds camera settings.
type CameraConfig struct {
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// DetectionConfig holds face detector settings.
type DetectionConfig struct {
	CascadeFile      string  `yaml:"cascade_file"`
	MinSize          int     `yaml:"min_size"`
	MaxSize          int     `yaml:"max_size"`
	ShiftFactor      float64 `yaml:"shift_factor"`
	ScaleFactor      float64 `yaml:"scale_factor"`
	QualityThreshold float64 `yaml:"quality_threshold"`
}

// RecognitionConfig holds classifier and authorization settings.
type RecognitionConfig struct {
	// Threshold is the maximum LBPH distance accepted as a match.
	// Lower values are stricter.
	Threshold   float64 `yaml:"threshold"`
	HoldSeconds float64 `yaml:"hold_seconds"`
}

// EnrollmentConfig holds enrollment capture settings.
type EnrollmentConfig struct {
	Samples     int `yaml:"samples"`
	MinSamples  int `yaml:"min_samples"`
	FrameStride int `yaml:"frame_stride"`
}

// StorageConfig holds artifact locations.
type StorageConfig struct {
	DataDir       string `yaml:"data_dir"`
	FacesDir      string `yaml:"faces_dir"`
	ModelPath     string `yaml:"model_path"`
	LabelsPath    string `yaml:"labels_path"`
	AllowlistPath string `yaml:"allowlist_path"`
	DatabasePath  string `yaml:"database_path"`
}

// ServerConfig holds export API server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local/share/facegate")
	return &Config{
		Camera: CameraConfig{
			Device: "/dev/video0",
			Width:  640,
			Height: 480,
		},
		Detection: DetectionConfig{
			CascadeFile:      filepath.Join(dataDir, "cascade/facefinder"),
			MinSize:          60,
			MaxSize:          480,
			ShiftFactor:      0.1,
			ScaleFactor:      1.1,
			QualityThreshold: 5.0,
		},
		Recognition: RecognitionConfig{
			Threshold:   60.0,
			HoldSeconds: 2.0,
		},
		Enrollment: EnrollmentConfig{
			Samples:     40,
			MinSamples:  20,
			FrameStride: 3,
		},
		Storage: StorageConfig{
			DataDir:       dataDir,
			FacesDir:      filepath.Join(dataDir, "faces"),
			ModelPath:     filepath.Join(dataDir, "model.gob"),
			LabelsPath:    filepath.Join(dataDir, "labels.json"),
			AllowlistPath: filepath.Join(dataDir, "authorized.txt"),
			DatabasePath:  filepath.Join(dataDir, "persons.db"),
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load loads configuration from the specified file on top of defaults.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, err
	}

	return config, nil
}

// LoadDefault tries to load configuration from default locations.
func LoadDefault() (*Config, error) {
	if _, err := os.Stat("/etc/facegate/facegate.yaml"); err == nil {
		return Load("/etc/facegate/facegate.yaml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	userConfig := filepath.Join(homeDir, ".config/facegate/facegate.yaml")
	if _, err := os.Stat(userConfig); err == nil {
		return Load(userConfig)
	}

	return DefaultConfig(), nil
}

// ExpandPath expands ~ and environment variables in a path.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("invalid camera resolution: %dx%d", c.Camera.Width, c.Camera.Height)
	}

	if c.Detection.MinSize <= 0 {
		return fmt.Errorf("min_size must be positive, got %d", c.Detection.MinSize)
	}
	if c.Detection.MaxSize < c.Detection.MinSize {
		return fmt.Errorf("max_size %d smaller than min_size %d", c.Detection.MaxSize, c.Detection.MinSize)
	}
	if c.Detection.ShiftFactor <= 0 || c.Detection.ShiftFactor > 1 {
		return fmt.Errorf("shift_factor must be in (0, 1], got %f", c.Detection.ShiftFactor)
	}
	if c.Detection.ScaleFactor <= 1 {
		return fmt.Errorf("scale_factor must be greater than 1, got %f", c.Detection.ScaleFactor)
	}

	if c.Recognition.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %f", c.Recognition.Threshold)
	}
	if c.Recognition.HoldSeconds < 0 {
		return fmt.Errorf("hold_seconds must not be negative, got %f", c.Recognition.HoldSeconds)
	}

	if c.Enrollment.Samples <= 0 {
		return fmt.Errorf("samples must be positive, got %d", c.Enrollment.Samples)
	}
	if c.Enrollment.MinSamples <= 0 || c.Enrollment.MinSamples > c.Enrollment.Samples {
		return fmt.Errorf("min_samples must be in [1, samples], got %d", c.Enrollment.MinSamples)
	}
	if c.Enrollment.FrameStride <= 0 {
		return fmt.Errorf("frame_stride must be positive, got %d", c.Enrollment.FrameStride)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// ExpandPaths expands all paths in the configuration.
func (c *Config) ExpandPaths() {
	c.Camera.Device = ExpandPath(c.Camera.Device)
	c.Detection.CascadeFile = ExpandPath(c.Detection.CascadeFile)
	c.Storage.DataDir = ExpandPath(c.Storage.DataDir)
	c.Storage.FacesDir = ExpandPath(c.Storage.FacesDir)
	c.Storage.ModelPath = ExpandPath(c.Storage.ModelPath)
	c.Storage.LabelsPath = ExpandPath(c.Storage.LabelsPath)
	c.Storage.AllowlistPath = ExpandPath(c.Storage.AllowlistPath)
	c.Storage.DatabasePath = ExpandPath(c.Storage.DatabasePath)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// EnsureDirectories creates the storage directories.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(c.Storage.FacesDir, 0700); err != nil {
		return fmt.Errorf("failed to create faces directory: %w", err)
	}
	if c.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.Logging.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return nil
}
