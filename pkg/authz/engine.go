// Package authz turns classifier predictions into access decisions.
package authz

import (
	"strconv"
	"sync"
	"time"

	"github.com/facegate/facegate/pkg/logging"
)

// Status is the outcome of evaluating one frame.
type Status string

const (
	// StatusNoFace means no face was located in the frame.
	StatusNoFace Status = "no_face"
	// StatusAuthorized means the face matched an identity allowed in.
	StatusAuthorized Status = "authorized"
	// StatusDenied means the face did not match, or matched an identity
	// that is not on the allow-list.
	StatusDenied Status = "denied"
)

// Identity is the resolved identity behind a prediction. Name is empty for
// a label with no registry record (for example a retained label of a
// deleted person).
type Identity struct {
	PersonID int
	Name     string
}

// Decision is one rendered access decision.
type Decision struct {
	Status     Status
	PersonID   int
	Name       string
	Confidence float64
	At         time.Time
}

// Engine applies the confidence threshold and the optional allow-list, and
// debounces the displayed decision. The underlying decision is still
// recomputed on every frame; only what Current returns is held steady, so
// the display does not flicker between frames. That hold is a UX choice,
// not a security one.
type Engine struct {
	threshold float64
	allowlist *Allowlist
	hold      time.Duration

	mu     sync.Mutex
	last   Decision
	heldAt time.Time
	now    func() time.Time
}

// NewEngine returns an Engine. A nil allowlist means no allow-list is
// configured.
func NewEngine(threshold float64, allowlist *Allowlist, hold time.Duration) *Engine {
	if allowlist == nil {
		allowlist = NewAllowlist()
	}
	return &Engine{
		threshold: threshold,
		allowlist: allowlist,
		hold:      hold,
		now:       time.Now,
	}
}

// NoFace records that the current frame contained no face.
func (e *Engine) NoFace() Decision {
	return e.render(Decision{Status: StatusNoFace})
}

// Evaluate renders a decision for a prediction and its resolved identity.
// identity may be nil when the label resolves to no known person.
func (e *Engine) Evaluate(confidence float64, identity *Identity) Decision {
	d := Decision{Status: StatusDenied, Confidence: confidence}
	if identity != nil {
		d.PersonID = identity.PersonID
		d.Name = identity.Name
	}

	match := confidence < e.threshold
	if match && identity != nil {
		if !e.allowlist.Configured() ||
			e.allowlist.Contains(identity.Name) ||
			e.allowlist.Contains(strconv.Itoa(identity.PersonID)) {
			d.Status = StatusAuthorized
		}
	}

	if d.Status == StatusDenied {
		logging.Component("authz").Debugf("denied (person=%q conf=%.2f threshold=%.2f)", d.Name, confidence, e.threshold)
	}
	return e.render(d)
}

// render timestamps the decision and updates the debounced state.
func (e *Engine) render(d Decision) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	d.At = e.now()
	if e.heldAt.IsZero() || d.At.Sub(e.heldAt) >= e.hold {
		e.last = d
		e.heldAt = d.At
	}
	return d
}

// Current returns the decision currently on display: the last rendered
// decision, held for the cool-down window.
func (e *Engine) Current() Decision {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}
