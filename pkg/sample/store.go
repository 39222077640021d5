package sample

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/facegate/facegate/pkg/logging"
)

// Store keeps the sample corpus on disk: one directory per person_id,
// normalized grayscale PNGs inside. Samples are the training corpus and
// are never deleted automatically; Purge is the only destructive path.
type Store struct {
	root string
}

// NewStore returns a Store rooted at the given directory, creating it if
// needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sample root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the corpus root directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the sample directory for a person.
func (s *Store) Dir(personID int) string {
	return filepath.Join(s.root, strconv.Itoa(personID))
}

// Filename builds the canonical sample file name:
// {basename}_{unix_time}_{sequence:03d}.png
func Filename(base string, unixTime int64, seq int) string {
	return fmt.Sprintf("%s_%d_%03d.png", base, unixTime, seq)
}

// Save writes one normalized sample for a person. The base name is the
// person's display name when known, else their decimal id.
func (s *Store) Save(personID int, base string, unixTime int64, seq int, img *image.Gray) (string, error) {
	dir := s.Dir(personID)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create sample directory: %w", err)
	}

	path := filepath.Join(dir, Filename(base, unixTime, seq))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create sample file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to encode sample: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Files lists a person's sample files in sorted order.
func (s *Store) Files(personID int) ([]string, error) {
	entries, err := os.ReadDir(s.Dir(personID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}
		files = append(files, filepath.Join(s.Dir(personID), e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Count returns the number of samples stored for a person.
func (s *Store) Count(personID int) (int, error) {
	files, err := s.Files(personID)
	return len(files), err
}

// Load reads all samples for one person.
func (s *Store) Load(personID int) ([]*image.Gray, error) {
	files, err := s.Files(personID)
	if err != nil {
		return nil, err
	}

	var samples []*image.Gray
	for _, path := range files {
		img, err := readGrayPNG(path)
		if err != nil {
			logging.Component("sample").Warnf("skipping unreadable sample %s: %v", path, err)
			continue
		}
		samples = append(samples, img)
	}
	return samples, nil
}

// People lists the person ids that have a sample directory, ascending.
func (s *Store) People() ([]int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}

	var ids []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// LoadAll reads the whole corpus grouped by person id.
func (s *Store) LoadAll() (map[int][]*image.Gray, error) {
	ids, err := s.People()
	if err != nil {
		return nil, err
	}

	corpus := make(map[int][]*image.Gray, len(ids))
	for _, id := range ids {
		samples, err := s.Load(id)
		if err != nil {
			return nil, err
		}
		if len(samples) > 0 {
			corpus[id] = samples
		}
	}
	return corpus, nil
}

// Purge removes a person's sample directory and everything in it.
func (s *Store) Purge(personID int) error {
	if err := os.RemoveAll(s.Dir(personID)); err != nil {
		return fmt.Errorf("failed to purge samples for %d: %w", personID, err)
	}
	logging.Component("sample").Infof("purged samples for person %d", personID)
	return nil
}

func readGrayPNG(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, err
	}
	if gray, ok := img.(*image.Gray); ok {
		return gray, nil
	}

	gray := image.NewGray(img.Bounds())
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray, nil
}
