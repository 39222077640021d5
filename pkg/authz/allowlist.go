package authz

import (
	"os"
	"sort"
	"strings"
)

// Allowlist is the set of person names or ids permitted access. It is an
// overlay on top of enrollment: a person can be enrolled yet not allowed.
// An empty list means no allow-list is configured and every match passes.
type Allowlist struct {
	entries map[string]struct{}
}

// NewAllowlist builds an allow-list from the given entries.
func NewAllowlist(entries ...string) *Allowlist {
	a := &Allowlist{entries: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e != "" {
			a.entries[e] = struct{}{}
		}
	}
	return a
}

// LoadAllowlist reads the newline-delimited artifact. A missing file is an
// empty (unconfigured) list.
func LoadAllowlist(path string) (*Allowlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewAllowlist(), nil
		}
		return nil, err
	}
	return NewAllowlist(strings.Split(string(data), "\n")...), nil
}

// Save writes the artifact with entries sorted, one per line.
func (a *Allowlist) Save(path string) error {
	return os.WriteFile(path, []byte(strings.Join(a.Entries(), "\n")+"\n"), 0644)
}

// Configured reports whether an allow-list is in effect.
func (a *Allowlist) Configured() bool {
	return len(a.entries) > 0
}

// Contains reports whether the given name or id is allowed.
func (a *Allowlist) Contains(entry string) bool {
	_, ok := a.entries[strings.TrimSpace(entry)]
	return ok
}

// Entries returns the sorted entries.
func (a *Allowlist) Entries() []string {
	out := make([]string, 0, len(a.entries))
	for e := range a.entries {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
