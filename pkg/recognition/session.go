// Package recognition runs the live authorization loop: frames in,
// debounced access decisions out.
package recognition

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/facegate/facegate/pkg/authz"
	"github.com/facegate/facegate/pkg/camera"
	"github.com/facegate/facegate/pkg/classifier"
	"github.com/facegate/facegate/pkg/detect"
	"github.com/facegate/facegate/pkg/logging"
	"github.com/facegate/facegate/pkg/registry"
	"github.com/facegate/facegate/pkg/sample"
)

// Locator finds the most prominent face in a frame.
type Locator interface {
	Find(img *image.Gray) (*detect.Region, bool)
}

// Predictor matches a normalized sample against the trained model.
type Predictor interface {
	Predict(img *image.Gray) (classifier.Prediction, error)
	Person(label int) (int, bool)
	Trained() bool
}

// Session is one live recognition run. It holds the camera for its whole
// lifetime and reads the last-loaded model; a retrain happening elsewhere
// is picked up on the next model swap, the loop itself never blocks on it.
type Session struct {
	guard     *camera.Guard
	locator   Locator
	predictor Predictor
	engine    *authz.Engine
	registry  *registry.Registry

	// OnDecision, when set, is called with every fresh (undebounced)
	// decision. The debounced view stays available via Engine.Current.
	OnDecision func(authz.Decision)
}

// NewSession wires the pipeline components into a recognition session.
func NewSession(guard *camera.Guard, locator Locator, predictor Predictor, engine *authz.Engine, reg *registry.Registry) *Session {
	return &Session{
		guard:     guard,
		locator:   locator,
		predictor: predictor,
		engine:    engine,
		registry:  reg,
	}
}

// Run processes frames until ctx is cancelled or the device fails. The
// classifier must have been trained or loaded; recognition without a model
// is fatal to the session, not to the process.
func (s *Session) Run(ctx context.Context) error {
	if !s.predictor.Trained() {
		return classifier.ErrNotTrained
	}

	source, release, err := s.guard.Acquire("recognition")
	if err != nil {
		return err
	}
	defer release()

	log := logging.Component("recognition")
	log.Infof("recognition session started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := source.Read()
		if err != nil {
			// Frame reads are the one thing never retried here: the
			// source already loops until the device itself fails.
			return err
		}

		decision := s.evaluate(frame)
		if s.OnDecision != nil {
			s.OnDecision(decision)
		}
	}
}

// evaluate renders the decision for a single frame.
func (s *Session) evaluate(frame *image.Gray) authz.Decision {
	region, ok := s.locator.Find(frame)
	if !ok {
		return s.engine.NoFace()
	}

	pred, err := s.predictor.Predict(sample.Normalize(region.Crop))
	if err != nil {
		logging.Component("recognition").Warnf("predict failed: %v", err)
		return s.engine.NoFace()
	}

	identity := s.resolve(pred.Label)
	decision := s.engine.Evaluate(pred.Confidence, identity)

	if decision.Status == authz.StatusAuthorized {
		if err := s.registry.Touch(decision.PersonID, time.Now()); err != nil && !errors.Is(err, registry.ErrNotFound) {
			logging.Component("recognition").Warnf("failed to record access for %d: %v", decision.PersonID, err)
		}
	}
	return decision
}

// resolve maps a predicted label to its identity. A retained label whose
// person was deleted resolves to nil and the decision falls through to
// Denied.
func (s *Session) resolve(label int) *authz.Identity {
	personID, ok := s.predictor.Person(label)
	if !ok {
		return nil
	}
	person, err := s.registry.Get(personID)
	if err != nil {
		return nil
	}
	return &authz.Identity{PersonID: person.ID, Name: person.Name}
}
