// Package classifier trains, persists and queries the LBPH face model and
// owns the label map tying classifier labels to person ids.
package classifier

import (
	"encoding/gob"
	"errors"
	"fmt"
	"image"
	"os"
	"sort"
	"sync"

	"github.com/facegate/facegate/pkg/logging"
)

// ErrInsufficientData is returned when training is attempted over an empty
// sample corpus.
var ErrInsufficientData = errors.New("no samples to train on")

// ErrNotTrained is returned when prediction is attempted before any model
// was trained or loaded.
var ErrNotTrained = errors.New("model not trained")

// Prediction is the classifier's answer for one probe sample. Confidence
// is a distance: lower means more similar, with no fixed upper bound.
type Prediction struct {
	Label      int
	Confidence float64
}

// Store trains, persists and serves the face model. Retraining is a full
// rebuild from the sample corpus: slower than incremental updates, but the
// model stays reproducible from the on-disk samples alone. Retrains are
// serialized; prediction keeps reading the last loaded model and is never
// blocked by a retrain in flight.
type Store struct {
	modelPath  string
	labelsPath string

	trainMu sync.Mutex // serializes Train, which rewrites the artifacts

	mu     sync.RWMutex // guards model and labels
	model  *model
	labels *LabelMap
}

// NewStore returns a Store over the given artifact paths. Call Load to
// restore a previously trained model.
func NewStore(modelPath, labelsPath string) *Store {
	return &Store{
		modelPath:  modelPath,
		labelsPath: labelsPath,
		labels:     NewLabelMap(),
	}
}

// Train rebuilds the model from the full corpus, grouped by person id.
// Existing label assignments are preserved; new persons get a fresh label.
// The model and label map artifacts are written before the in-memory model
// is swapped, so a crash mid-train never leaves a half-updated state
// visible to readers.
func (s *Store) Train(corpus map[int][]*image.Gray) error {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	total := 0
	for _, samples := range corpus {
		total += len(samples)
	}
	if total == 0 {
		return ErrInsufficientData
	}

	labels, err := LoadLabelMap(s.labelsPath)
	if err != nil {
		return err
	}

	// Deterministic label assignment: persons in ascending id order.
	ids := make([]int, 0, len(corpus))
	for id := range corpus {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	m := &model{GridX: gridX, GridY: gridY}
	for _, id := range ids {
		label := labels.Assign(id)
		for _, img := range corpus[id] {
			m.Samples = append(m.Samples, trainedSample{
				Label: label,
				Hist:  spatialHistogram(img),
			})
		}
	}

	if err := saveModel(s.modelPath, m); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	if err := labels.Save(s.labelsPath); err != nil {
		return fmt.Errorf("failed to save label map: %w", err)
	}

	s.mu.Lock()
	s.model = m
	s.labels = labels
	s.mu.Unlock()

	logging.Component("classifier").Infof("trained on %d samples across %d persons", total, len(ids))
	return nil
}

// Predict matches a normalized sample against the loaded model.
func (s *Store) Predict(img *image.Gray) (Prediction, error) {
	s.mu.RLock()
	m := s.model
	s.mu.RUnlock()

	if m == nil || len(m.Samples) == 0 {
		return Prediction{}, ErrNotTrained
	}

	label, dist := m.predict(spatialHistogram(img))
	return Prediction{Label: label, Confidence: dist}, nil
}

// Load restores the model and label map from disk. Missing artifacts leave
// the store untrained.
func (s *Store) Load() error {
	labels, err := LoadLabelMap(s.labelsPath)
	if err != nil {
		return err
	}

	m, err := loadModel(s.modelPath)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.labels = labels
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to load model: %w", err)
	}

	s.mu.Lock()
	s.model = m
	s.labels = labels
	s.mu.Unlock()

	logging.Component("classifier").Debugf("model loaded with %d training samples", len(m.Samples))
	return nil
}

// Trained reports whether a model is available for prediction.
func (s *Store) Trained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil && len(s.model.Samples) > 0
}

// Person resolves a predicted label to a person id.
func (s *Store) Person(label int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.labels.Person(label)
}

// LabelMap returns a snapshot copy of the current label map.
func (s *Store) LabelMap() *LabelMap {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := NewLabelMap()
	for _, label := range s.labels.Labels() {
		person, _ := s.labels.Person(label)
		out.toPerson[label] = person
		out.toLabel[person] = label
	}
	return out
}

// ModelPath returns the model artifact location.
func (s *Store) ModelPath() string {
	return s.modelPath
}

func saveModel(path string, m *model) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(m); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func loadModel(path string) (*model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m model
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}
