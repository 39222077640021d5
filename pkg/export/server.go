// Package export serves the read-only sync API: identity list, resolved
// label map, trained classifier artifact and sample archives. Remote
// deployments pull these to stay in sync; the merge logic on the importing
// side is theirs.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/facegate/facegate/pkg/classifier"
	"github.com/facegate/facegate/pkg/logging"
	"github.com/facegate/facegate/pkg/registry"
	"github.com/facegate/facegate/pkg/sample"
)

// ErrArtifactNotFound is returned when a requested artifact (model,
// person, samples) does not exist. It maps to a typed 404, never a
// generic failure.
var ErrArtifactNotFound = errors.New("artifact not found")

// IdentityAttrs is the exported view of one identity record.
type IdentityAttrs struct {
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
	Role       string `json:"role"`
	LastAccess string `json:"last_access,omitempty"`
}

// Classifier is the subset of the classifier store the exporter reads.
type Classifier interface {
	LabelMap() *classifier.LabelMap
	ModelPath() string
	Trained() bool
}

// Server exposes the sync API over HTTP.
type Server struct {
	registry   *registry.Registry
	samples    *sample.Store
	classifier Classifier
	httpServer *http.Server
	router     *chi.Mux
}

// NewServer builds the server and its routes.
func NewServer(addr string, reg *registry.Registry, samples *sample.Store, cls Classifier) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	s := &Server{
		registry:   reg,
		samples:    samples,
		classifier: cls,
		router:     r,
	}

	r.Get("/health", s.handleHealth)
	r.Get("/identities", s.handleIdentities)
	r.Get("/labels", s.handleLabels)
	r.Get("/model", s.handleModel)
	r.Get("/samples", s.handleAllSamples)
	r.Get("/samples/{person}", s.handlePersonSamples)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logging.Component("export").Infof("sync API listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("export server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIdentities exports id -> attributes for every registered person.
func (s *Server) handleIdentities(w http.ResponseWriter, r *http.Request) {
	persons, err := s.registry.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make(map[string]IdentityAttrs, len(persons))
	for _, p := range persons {
		attrs := IdentityAttrs{Name: p.Name, ExternalID: p.ExternalID, Role: p.Role}
		if !p.LastAccess.IsZero() {
			attrs.LastAccess = p.LastAccess.UTC().Format(time.RFC3339)
		}
		out[fmt.Sprintf("%d", p.ID)] = attrs
	}
	writeJSON(w, http.StatusOK, out)
}

// handleLabels exports label -> person name, resolved at export time so
// the remote side does not need the local registry to interpret labels.
// A label whose person was deleted resolves to the raw person id string
// and is logged as inconsistent.
func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	labels := s.classifier.LabelMap()
	out := make(map[string]string, labels.Len())
	for _, label := range labels.Labels() {
		personID, _ := labels.Person(label)
		person, err := s.registry.Get(personID)
		if err != nil {
			logging.Component("export").Warnf("label %d references missing person %d", label, personID)
			out[fmt.Sprintf("%d", label)] = fmt.Sprintf("%d", personID)
			continue
		}
		out[fmt.Sprintf("%d", label)] = person.Name
	}
	writeJSON(w, http.StatusOK, out)
}

// handleModel streams the trained classifier artifact.
func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	if !s.classifier.Trained() {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: model not trained", ErrArtifactNotFound))
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=model.gob")
	http.ServeFile(w, r, s.classifier.ModelPath())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	kind := "internal"
	if errors.Is(err, ErrArtifactNotFound) {
		kind = "artifact_not_found"
	}
	writeJSON(w, status, map[string]string{"error": kind, "detail": err.Error()})
}
