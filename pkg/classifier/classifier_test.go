package classifier

import (
	"encoding/json"
	"errors"
	"image"
	"math/rand"
	"path/filepath"
	"testing"
)

// texturedGray builds a deterministic textured image. Different seeds
// produce images with well-separated LBPH histograms.
func texturedGray(seed int64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	rng := rand.New(rand.NewSource(seed))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(filepath.Join(dir, "model.gob"), filepath.Join(dir, "labels.json"))
}

func TestLabelMapAssign(t *testing.T) {
	m := NewLabelMap()

	if got := m.Assign(7); got != 1 {
		t.Errorf("first label = %d, want 1", got)
	}
	if got := m.Assign(3); got != 2 {
		t.Errorf("second label = %d, want 2", got)
	}
	// Re-assigning an enrolled person keeps the label stable.
	if got := m.Assign(7); got != 1 {
		t.Errorf("repeat assign = %d, want 1", got)
	}

	if person, ok := m.Person(2); !ok || person != 3 {
		t.Errorf("Person(2) = %d, %v, want 3, true", person, ok)
	}
	if _, ok := m.Person(99); ok {
		t.Error("Person(99) resolved an unassigned label")
	}
}

func TestLabelMapJSONFormat(t *testing.T) {
	m := NewLabelMap()
	m.Assign(12)
	m.Assign(5)

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	// Keys are decimal strings mapping label to person id.
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("artifact is not string-keyed: %v", err)
	}
	if raw["1"] != 12 || raw["2"] != 5 {
		t.Errorf("artifact = %v, want {1:12 2:5}", raw)
	}

	back := NewLabelMap()
	if err := json.Unmarshal(data, back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if label, ok := back.Label(5); !ok || label != 2 {
		t.Errorf("round-tripped Label(5) = %d, %v, want 2, true", label, ok)
	}
}

func TestLabelMapLoadMissing(t *testing.T) {
	m, err := LoadLabelMap(filepath.Join(t.TempDir(), "labels.json"))
	if err != nil {
		t.Fatalf("LoadLabelMap on missing file failed: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("missing artifact yielded %d entries, want 0", m.Len())
	}
}

func TestLabelMapSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.json")

	m := NewLabelMap()
	m.Assign(4)
	m.Assign(9)
	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadLabelMap(path)
	if err != nil {
		t.Fatalf("LoadLabelMap failed: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("loaded %d entries, want 2", loaded.Len())
	}
	// New persons continue after the highest persisted label.
	if got := loaded.Assign(20); got != 3 {
		t.Errorf("next label after reload = %d, want 3", got)
	}
}

func TestTrainAndPredict(t *testing.T) {
	store := newTestStore(t)

	corpus := map[int][]*image.Gray{
		1: {texturedGray(10), texturedGray(11)},
		2: {texturedGray(20), texturedGray(21)},
	}
	if err := store.Train(corpus); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if !store.Trained() {
		t.Fatal("store not trained after Train")
	}

	// A training image predicts its own label with distance zero.
	pred, err := store.Predict(texturedGray(20))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if person, ok := store.Person(pred.Label); !ok || person != 2 {
		t.Errorf("predicted person = %d, %v, want 2, true", person, ok)
	}
	if pred.Confidence != 0 {
		t.Errorf("self-match confidence = %f, want 0", pred.Confidence)
	}

	// A different texture matches at a larger distance.
	other, err := store.Predict(texturedGray(999))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if other.Confidence <= pred.Confidence {
		t.Errorf("unrelated probe confidence = %f, want > 0", other.Confidence)
	}
}

func TestTrainEmptyCorpus(t *testing.T) {
	store := newTestStore(t)
	err := store.Train(map[int][]*image.Gray{})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Train on empty corpus = %v, want ErrInsufficientData", err)
	}
	err = store.Train(map[int][]*image.Gray{3: {}})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Train on sampleless person = %v, want ErrInsufficientData", err)
	}
}

func TestPredictUntrained(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Predict(texturedGray(1)); !errors.Is(err, ErrNotTrained) {
		t.Errorf("Predict untrained = %v, want ErrNotTrained", err)
	}
	if store.Trained() {
		t.Error("fresh store reports trained")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.gob")
	labelsPath := filepath.Join(dir, "labels.json")

	trained := NewStore(modelPath, labelsPath)
	corpus := map[int][]*image.Gray{
		1: {texturedGray(10)},
		2: {texturedGray(20)},
	}
	if err := trained.Train(corpus); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	want, err := trained.Predict(texturedGray(10))
	if err != nil {
		t.Fatal(err)
	}

	// A fresh store over the same artifacts predicts identically.
	restored := NewStore(modelPath, labelsPath)
	if err := restored.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !restored.Trained() {
		t.Fatal("restored store not trained")
	}

	got, err := restored.Predict(texturedGray(10))
	if err != nil {
		t.Fatalf("Predict after Load failed: %v", err)
	}
	if got.Label != want.Label || got.Confidence != want.Confidence {
		t.Errorf("restored prediction = %+v, want %+v", got, want)
	}
}

func TestLoadMissingArtifacts(t *testing.T) {
	store := newTestStore(t)
	if err := store.Load(); err != nil {
		t.Fatalf("Load with no artifacts failed: %v", err)
	}
	if store.Trained() {
		t.Error("store trained with no artifacts on disk")
	}
}

func TestRetrainKeepsLabelsStable(t *testing.T) {
	store := newTestStore(t)

	if err := store.Train(map[int][]*image.Gray{5: {texturedGray(50)}}); err != nil {
		t.Fatal(err)
	}
	first := store.LabelMap()
	labelOf5, _ := first.Label(5)

	// Retrain with an added person; the existing assignment survives.
	corpus := map[int][]*image.Gray{
		5: {texturedGray(50)},
		8: {texturedGray(80)},
	}
	if err := store.Train(corpus); err != nil {
		t.Fatal(err)
	}
	second := store.LabelMap()
	if got, _ := second.Label(5); got != labelOf5 {
		t.Errorf("label of person 5 changed across retrain: %d -> %d", labelOf5, got)
	}
	if second.Len() != 2 {
		t.Errorf("label map has %d entries after retrain, want 2", second.Len())
	}
}

func TestChiSquare(t *testing.T) {
	a := []float32{0.5, 0.5, 0}
	if d := chiSquare(a, a); d != 0 {
		t.Errorf("chiSquare(a, a) = %f, want 0", d)
	}

	b := []float32{0, 0.5, 0.5}
	if d := chiSquare(a, b); d <= 0 {
		t.Errorf("chiSquare(a, b) = %f, want > 0", d)
	}
	if chiSquare(a, b) != chiSquare(b, a) {
		t.Error("chiSquare is not symmetric")
	}
}

func TestSpatialHistogramCellsNormalized(t *testing.T) {
	hist := spatialHistogram(texturedGray(42))

	if len(hist) != gridX*gridY*bins {
		t.Fatalf("histogram length = %d, want %d", len(hist), gridX*gridY*bins)
	}
	for cell := 0; cell < gridX*gridY; cell++ {
		var sum float32
		for _, v := range hist[cell*bins : (cell+1)*bins] {
			sum += v
		}
		if sum < 0.999 || sum > 1.001 {
			t.Fatalf("cell %d sums to %f, want 1", cell, sum)
		}
	}
}
