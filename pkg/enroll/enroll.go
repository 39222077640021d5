// Package enroll implements the capture-then-train-then-commit enrollment
// workflow. A person only ever becomes visible in the registry after their
// samples are captured, validated and trained into the classifier; every
// failure path rolls the on-disk state back to what it was before.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/facegate/facegate/pkg/camera"
	"github.com/facegate/facegate/pkg/classifier"
	"github.com/facegate/facegate/pkg/detect"
	"github.com/facegate/facegate/pkg/logging"
	"github.com/facegate/facegate/pkg/registry"
	"github.com/facegate/facegate/pkg/sample"
)

// ErrInsufficientSamples is returned when capture ended before the minimum
// sample count was reached.
var ErrInsufficientSamples = errors.New("insufficient samples captured")

// State is a phase of the enrollment workflow.
type State string

const (
	StateIdle       State = "idle"
	StateCapturing  State = "capturing"
	StateValidating State = "validating"
	StateAborted    State = "aborted"
	StateTraining   State = "training"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

// Progress is one incremental update emitted during enrollment.
type Progress struct {
	State   State
	Percent int
	Message string
}

// Request describes the person to enroll.
type Request struct {
	Name       string
	ExternalID string
	Role       string
	// Samples overrides the configured target sample count when positive.
	Samples int
}

// Result is the outcome of a committed enrollment.
type Result struct {
	Person  *registry.Person
	Label   int
	Samples int
}

// Locator finds the most prominent face in a frame.
type Locator interface {
	Find(img *image.Gray) (*detect.Region, bool)
}

// Trainer rebuilds the classifier from the sample corpus.
type Trainer interface {
	Train(corpus map[int][]*image.Gray) error
	LabelMap() *classifier.LabelMap
}

// Config holds the capture policy.
type Config struct {
	// Samples is the target sample count per enrollment.
	Samples int
	// MinSamples is the minimum below which the session aborts.
	MinSamples int
	// FrameStride keeps 1 in every N detected frames, for pose variety.
	FrameStride int
}

// Workflow wires the pipeline components into the enrollment state
// machine. One Workflow serves many sessions, one at a time per camera.
type Workflow struct {
	cfg      Config
	guard    *camera.Guard
	locator  Locator
	samples  *sample.Store
	trainer  Trainer
	registry *registry.Registry
}

// NewWorkflow returns a Workflow over the given components.
func NewWorkflow(cfg Config, guard *camera.Guard, locator Locator, samples *sample.Store, trainer Trainer, reg *registry.Registry) *Workflow {
	return &Workflow{
		cfg:      cfg,
		guard:    guard,
		locator:  locator,
		samples:  samples,
		trainer:  trainer,
		registry: reg,
	}
}

// Run executes one enrollment session. Progress events are sent to the
// progress channel when non-nil; the channel is never closed by Run.
// Cancellation is cooperative: ctx is checked once per captured frame and
// still runs the rollback path.
func (w *Workflow) Run(ctx context.Context, req Request, progress chan<- Progress) (*Result, error) {
	log := logging.Component("enroll")
	report := func(state State, percent int, format string, args ...interface{}) {
		if progress != nil {
			progress <- Progress{State: state, Percent: percent, Message: fmt.Sprintf(format, args...)}
		}
	}

	target := w.cfg.Samples
	if req.Samples > 0 {
		target = req.Samples
	}

	// Reserve the lowest free id. The record itself is not inserted until
	// training succeeded.
	personID, err := w.registry.NextAvailableID()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve person id: %w", err)
	}
	log.Infof("enrolling %q as person %d (target %d samples)", req.Name, personID, target)

	source, release, err := w.guard.Acquire("enrollment")
	if err != nil {
		return nil, err
	}

	report(StateCapturing, 0, "capturing 0/%d", target)
	taken, captureErr := w.capture(ctx, source, personID, req.Name, target, func(taken int) {
		report(StateCapturing, taken*100/target, "captured %d/%d", taken, target)
	})
	release()

	// A device failure or an operator cancel aborts the session no matter
	// how many samples were already taken: a capture that did not run to
	// completion never trains or commits.
	if captureErr != nil {
		report(StateAborted, taken*100/target, "aborted with %d samples", taken)
		if err := w.samples.Purge(personID); err != nil {
			log.Warnf("rollback purge failed: %v", err)
		}
		return nil, captureErr
	}

	report(StateValidating, taken*100/target, "validating %d samples", taken)
	if taken < w.cfg.MinSamples {
		report(StateAborted, taken*100/target, "aborted with %d samples", taken)
		if err := w.samples.Purge(personID); err != nil {
			log.Warnf("rollback purge failed: %v", err)
		}
		return nil, fmt.Errorf("%w: got %d, need at least %d", ErrInsufficientSamples, taken, w.cfg.MinSamples)
	}

	report(StateTraining, 100, "training on full corpus")
	corpus, err := w.samples.LoadAll()
	if err == nil {
		err = w.trainer.Train(corpus)
	}
	if err != nil {
		report(StateRolledBack, 100, "training failed")
		if perr := w.samples.Purge(personID); perr != nil {
			log.Warnf("rollback purge failed: %v", perr)
		}
		return nil, fmt.Errorf("training failed, enrollment rolled back: %w", err)
	}

	// Training succeeded: commit the identity record.
	person, err := w.registry.Add(personID, req.Name, req.ExternalID, req.Role)
	if err != nil {
		report(StateRolledBack, 100, "registry commit failed")
		if perr := w.samples.Purge(personID); perr != nil {
			log.Warnf("rollback purge failed: %v", perr)
		}
		return nil, err
	}

	label, _ := w.trainer.LabelMap().Label(personID)
	report(StateCommitted, 100, "enrolled %s with %d samples", req.Name, taken)
	log.Infof("committed person %d (%s) label %d with %d samples", personID, req.Name, label, taken)

	return &Result{Person: person, Label: label, Samples: taken}, nil
}

// capture runs the frame loop: read, locate, normalize, and keep 1 in
// every FrameStride detected frames until the target count is reached.
// It returns however many samples were stored together with the error
// that stopped it, if any; the caller decides whether that is fatal.
func (w *Workflow) capture(ctx context.Context, source camera.Source, personID int, name string, target int, onSample func(int)) (int, error) {
	base := name
	if base == "" {
		base = fmt.Sprintf("%d", personID)
	}

	detected := 0
	taken := 0
	for taken < target {
		select {
		case <-ctx.Done():
			return taken, ctx.Err()
		default:
		}

		frame, err := source.Read()
		if err != nil {
			return taken, err
		}

		region, ok := w.locator.Find(frame)
		if !ok {
			continue
		}

		if detected%w.cfg.FrameStride == 0 {
			norm := sample.Normalize(region.Crop)
			if _, err := w.samples.Save(personID, base, time.Now().Unix(), taken, norm); err != nil {
				return taken, err
			}
			taken++
			onSample(taken)
		}
		detected++
	}
	return taken, nil
}
