package main

import (
	"github.com/facegate/facegate/pkg/camera"
	"github.com/facegate/facegate/pkg/classifier"
	"github.com/facegate/facegate/pkg/config"
	"github.com/facegate/facegate/pkg/detect"
	"github.com/facegate/facegate/pkg/registry"
	"github.com/facegate/facegate/pkg/sample"
)

// pipeline bundles the long-lived components shared by the subcommands.
// Each component is an explicitly owned resource: built here, passed into
// the workflow that needs it, closed by the command that built it.
type pipeline struct {
	samples    *sample.Store
	registry   *registry.Registry
	classifier *classifier.Store
}

func newPipeline(cfg *config.Config) (*pipeline, error) {
	samples, err := sample.NewStore(cfg.Storage.FacesDir)
	if err != nil {
		return nil, err
	}

	reg, err := registry.Open(cfg.Storage.DatabasePath, samples)
	if err != nil {
		return nil, err
	}

	cls := classifier.NewStore(cfg.Storage.ModelPath, cfg.Storage.LabelsPath)
	if err := cls.Load(); err != nil {
		_ = reg.Close()
		return nil, err
	}

	return &pipeline{samples: samples, registry: reg, classifier: cls}, nil
}

func (p *pipeline) close() {
	_ = p.registry.Close()
}

// newLocator builds the face locator from the configured cascade.
func newLocator(cfg *config.Config) (*detect.Locator, error) {
	return detect.NewLocator(cfg.Detection.CascadeFile, detect.Params{
		MinSize:          cfg.Detection.MinSize,
		MaxSize:          cfg.Detection.MaxSize,
		ShiftFactor:      cfg.Detection.ShiftFactor,
		ScaleFactor:      cfg.Detection.ScaleFactor,
		QualityThreshold: cfg.Detection.QualityThreshold,
	})
}

// newCameraGuard wraps the configured capture device (or a frame
// directory, for offline runs) in the exclusion guard.
func newCameraGuard(cfg *config.Config, framesDir string) *camera.Guard {
	if framesDir != "" {
		return camera.NewGuard(camera.NewDir(framesDir))
	}
	return camera.NewGuard(camera.NewDevice(cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height))
}
