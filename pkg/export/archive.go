package export

import (
	"archive/zip"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/facegate/facegate/pkg/logging"
	"github.com/facegate/facegate/pkg/registry"
)

// handlePersonSamples serves one person's samples as a zip archive. The
// path segment may be a person id or a display name.
func (s *Server) handlePersonSamples(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "person")

	person, err := s.resolvePerson(ref)
	if err != nil {
		if errors.Is(err, ErrArtifactNotFound) {
			writeError(w, http.StatusNotFound, err)
		} else {
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	files, err := s.samples.Files(person.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(files) == 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: no samples for %s", ErrArtifactNotFound, person.Name))
		return
	}

	serveZip(w, fmt.Sprintf("%s_faces.zip", SanitizeName(person.Name)), func(zw *zip.Writer) error {
		for _, path := range files {
			if err := addFile(zw, path, filepath.Base(path)); err != nil {
				return err
			}
		}
		return nil
	})
}

// handleAllSamples serves the whole corpus as one zip. Member names are
// prefixed with the sanitized person name so the archive extracts flat
// without per-person directories; ordering is deterministic (ascending
// person id, sorted file names) for reproducible transfers.
func (s *Server) handleAllSamples(w http.ResponseWriter, r *http.Request) {
	ids, err := s.samples.People()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(ids) == 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: no samples stored", ErrArtifactNotFound))
		return
	}

	serveZip(w, "all_faces.zip", func(zw *zip.Writer) error {
		for _, id := range ids {
			name := strconv.Itoa(id)
			if person, err := s.registry.Get(id); err == nil {
				name = person.Name
			} else {
				logging.Component("export").Warnf("samples of person %d have no registry record", id)
			}

			files, err := s.samples.Files(id)
			if err != nil {
				return err
			}
			safe := SanitizeName(name)
			for _, path := range files {
				if err := addFile(zw, path, safe+"_"+filepath.Base(path)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// resolvePerson finds a person by decimal id or by exact name.
func (s *Server) resolvePerson(ref string) (*registry.Person, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		person, err := s.registry.Get(id)
		if errors.Is(err, registry.ErrNotFound) {
			return nil, fmt.Errorf("%w: person %d", ErrArtifactNotFound, id)
		}
		return person, err
	}

	matches, err := s.registry.Find(ref)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		if strings.EqualFold(matches[i].Name, ref) {
			return &matches[i], nil
		}
	}
	return nil, fmt.Errorf("%w: person %q", ErrArtifactNotFound, ref)
}

// SanitizeName makes a person name safe for archive member names: keep
// alphanumerics, underscore and hyphen, map spaces to underscore, drop the
// rest.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, ch := range name {
		switch {
		case ch == '_' || ch == '-':
			b.WriteRune(ch)
		case ch == ' ' || ch == '\t':
			b.WriteByte('_')
		case ch >= '0' && ch <= '9', ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
			b.WriteRune(ch)
		}
	}
	if b.Len() == 0 {
		return "person"
	}
	return b.String()
}

func serveZip(w http.ResponseWriter, filename string, fill func(*zip.Writer) error) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	zw := zip.NewWriter(w)
	if err := fill(zw); err != nil {
		logging.Component("export").Errorf("archive build failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		logging.Component("export").Errorf("archive close failed: %v", err)
	}
}

func addFile(zw *zip.Writer, path, arcname string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f, err := zw.Create(arcname)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}
