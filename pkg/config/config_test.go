package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Camera.Device != "/dev/video0" {
		t.Errorf("default camera device = %s, want /dev/video0", cfg.Camera.Device)
	}
	if cfg.Recognition.Threshold != 60.0 {
		t.Errorf("default threshold = %f, want 60.0", cfg.Recognition.Threshold)
	}
	if cfg.Recognition.HoldSeconds != 2.0 {
		t.Errorf("default hold = %f, want 2.0", cfg.Recognition.HoldSeconds)
	}
	if cfg.Enrollment.Samples != 40 || cfg.Enrollment.MinSamples != 20 {
		t.Errorf("default enrollment = %d/%d, want 40/20", cfg.Enrollment.Samples, cfg.Enrollment.MinSamples)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "facegate.yaml")

	content := `
camera:
  device: /dev/video2
recognition:
  threshold: 45.5
enrollment:
  samples: 60
  min_samples: 30
server:
  port: 9000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Camera.Device != "/dev/video2" {
		t.Errorf("camera device = %s, want /dev/video2", cfg.Camera.Device)
	}
	if cfg.Recognition.Threshold != 45.5 {
		t.Errorf("threshold = %f, want 45.5", cfg.Recognition.Threshold)
	}
	if cfg.Enrollment.Samples != 60 {
		t.Errorf("samples = %d, want 60", cfg.Enrollment.Samples)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}

	// Unset values keep their defaults.
	if cfg.Camera.Width != 640 {
		t.Errorf("width = %d, want default 640", cfg.Camera.Width)
	}
	if cfg.Enrollment.FrameStride != 3 {
		t.Errorf("frame_stride = %d, want default 3", cfg.Enrollment.FrameStride)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/facegate.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
	if cfg == nil {
		t.Fatal("expected default config even on error")
	}
	if cfg.Recognition.Threshold != 60.0 {
		t.Errorf("threshold = %f, want default 60.0", cfg.Recognition.Threshold)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero camera width",
			mutate:  func(c *Config) { c.Camera.Width = 0 },
			wantErr: true,
		},
		{
			name:    "negative threshold",
			mutate:  func(c *Config) { c.Recognition.Threshold = -1 },
			wantErr: true,
		},
		{
			name:    "min samples above target",
			mutate:  func(c *Config) { c.Enrollment.MinSamples = c.Enrollment.Samples + 1 },
			wantErr: true,
		},
		{
			name:    "zero frame stride",
			mutate:  func(c *Config) { c.Enrollment.FrameStride = 0 },
			wantErr: true,
		},
		{
			name:    "scale factor below one",
			mutate:  func(c *Config) { c.Detection.ScaleFactor = 0.9 },
			wantErr: true,
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("FACEGATE_TEST_DIR", "/data")

	if got := ExpandPath("$FACEGATE_TEST_DIR/faces"); got != "/data/faces" {
		t.Errorf("ExpandPath env = %s, want /data/faces", got)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/faces"); got != filepath.Join(home, "faces") {
		t.Errorf("ExpandPath home = %s, want %s", got, filepath.Join(home, "faces"))
	}
}

func TestEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage.DataDir = filepath.Join(tmpDir, "data")
	cfg.Storage.FacesDir = filepath.Join(tmpDir, "data", "faces")
	cfg.Logging.File = filepath.Join(tmpDir, "logs", "facegate.log")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Storage.DataDir, cfg.Storage.FacesDir, filepath.Dir(cfg.Logging.File)} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("directory %s was not created: %v", dir, err)
		}
	}
}
