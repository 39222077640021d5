package sample

import (
	"bytes"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func randomGray(t *testing.T, w, h int, seed int64) *image.Gray {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	rng := rand.New(rand.NewSource(seed))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

func TestNormalizeDeterministic(t *testing.T) {
	crop := randomGray(t, 137, 152, 1)

	a := Normalize(crop)
	b := Normalize(crop)

	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("normalizing the same crop twice produced different output")
	}
}

func TestNormalizeSize(t *testing.T) {
	for _, dims := range [][2]int{{50, 50}, {137, 152}, {400, 300}} {
		crop := randomGray(t, dims[0], dims[1], 2)
		out := Normalize(crop)
		if out.Bounds().Dx() != Size || out.Bounds().Dy() != Size {
			t.Errorf("normalized %dx%d to %dx%d, want %dx%d",
				dims[0], dims[1], out.Bounds().Dx(), out.Bounds().Dy(), Size, Size)
		}
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	crop := randomGray(t, 100, 100, 3)
	before := append([]uint8(nil), crop.Pix...)

	Normalize(crop)

	if !bytes.Equal(before, crop.Pix) {
		t.Error("Normalize mutated its input")
	}
}

func TestEqualizeStretchesContrast(t *testing.T) {
	// A low-contrast ramp should cover the full range after equalization.
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = uint8(100 + i%40)
	}

	out := equalize(img)

	lo, hi := out.Pix[0], out.Pix[0]
	for _, p := range out.Pix {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	if lo != 0 || hi != 255 {
		t.Errorf("equalized range = [%d, %d], want [0, 255]", lo, hi)
	}
}

func TestFilename(t *testing.T) {
	got := Filename("Juan", 1700000000, 7)
	want := "Juan_1700000000_007.png"
	if got != want {
		t.Errorf("Filename = %s, want %s", got, want)
	}

	if ok, _ := regexp.MatchString(`^.+_\d+_\d{3}\.png$`, got); !ok {
		t.Errorf("Filename %s does not match layout", got)
	}
}

func TestStoreSaveLoadPurge(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	img := randomGray(t, Size, Size, 4)
	for i := 0; i < 3; i++ {
		if _, err := store.Save(5, "Ana", 1700000000, i, img); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	count, err := store.Count(5)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count = %d, want 3", count)
	}

	loaded, err := store.Load(5)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("loaded %d samples, want 3", len(loaded))
	}
	// PNG round-trips grayscale losslessly.
	if !bytes.Equal(loaded[0].Pix, img.Pix) {
		t.Error("loaded sample differs from saved sample")
	}

	if err := store.Purge(5); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if _, err := os.Stat(store.Dir(5)); !os.IsNotExist(err) {
		t.Error("sample directory still exists after Purge")
	}

	// Purging a person with no samples is not an error.
	if err := store.Purge(99); err != nil {
		t.Errorf("Purge of absent person failed: %v", err)
	}
}

func TestStorePeopleAndLoadAll(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	img := randomGray(t, Size, Size, 5)
	for _, id := range []int{7, 2, 11} {
		if _, err := store.Save(id, "p", 1700000000, 0, img); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	// A stray non-numeric directory is ignored.
	if err := os.MkdirAll(filepath.Join(store.Root(), "stray"), 0700); err != nil {
		t.Fatal(err)
	}

	people, err := store.People()
	if err != nil {
		t.Fatalf("People failed: %v", err)
	}
	want := []int{2, 7, 11}
	if len(people) != len(want) {
		t.Fatalf("People = %v, want %v", people, want)
	}
	for i := range want {
		if people[i] != want[i] {
			t.Errorf("People[%d] = %d, want %d", i, people[i], want[i])
		}
	}

	corpus, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(corpus) != 3 {
		t.Errorf("LoadAll returned %d persons, want 3", len(corpus))
	}
	if len(corpus[7]) != 1 {
		t.Errorf("corpus[7] has %d samples, want 1", len(corpus[7]))
	}
}

func TestStoreFilesSorted(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	img := randomGray(t, 8, 8, 6)
	for _, seq := range []int{2, 0, 1} {
		if _, err := store.Save(1, "p", 1700000000, seq, img); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	files, err := store.Files(1)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Errorf("files not sorted: %s before %s", files[i-1], files[i])
		}
	}
}
