package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// LabelMap is the bidirectional mapping between classifier labels and
// person ids. It is persisted separately from the identity records so the
// classifier and the registry can evolve independently. Keys are decimal
// strings on disk; normalization to ints happens only here, at the
// serialization boundary.
type LabelMap struct {
	toPerson map[int]int
	toLabel  map[int]int
}

// NewLabelMap returns an empty label map.
func NewLabelMap() *LabelMap {
	return &LabelMap{
		toPerson: make(map[int]int),
		toLabel:  make(map[int]int),
	}
}

// Assign returns the label for a person, allocating max+1 for a person not
// seen before. Labels of enrolled persons are stable across retrains.
func (m *LabelMap) Assign(personID int) int {
	if label, ok := m.toLabel[personID]; ok {
		return label
	}
	next := 1
	for label := range m.toPerson {
		if label >= next {
			next = label + 1
		}
	}
	m.toPerson[next] = personID
	m.toLabel[personID] = next
	return next
}

// Person resolves a label to a person id.
func (m *LabelMap) Person(label int) (int, bool) {
	id, ok := m.toPerson[label]
	return id, ok
}

// Label resolves a person id to their label.
func (m *LabelMap) Label(personID int) (int, bool) {
	label, ok := m.toLabel[personID]
	return label, ok
}

// Labels returns all labels in ascending order.
func (m *LabelMap) Labels() []int {
	labels := make([]int, 0, len(m.toPerson))
	for label := range m.toPerson {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	return labels
}

// Len returns the number of entries.
func (m *LabelMap) Len() int {
	return len(m.toPerson)
}

// MarshalJSON encodes the map as {"label": person_id} with decimal string
// keys, the artifact format shared with remote deployments.
func (m *LabelMap) MarshalJSON() ([]byte, error) {
	raw := make(map[string]int, len(m.toPerson))
	for label, person := range m.toPerson {
		raw[strconv.Itoa(label)] = person
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes the string-keyed artifact back into typed form.
func (m *LabelMap) UnmarshalJSON(data []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.toPerson = make(map[int]int, len(raw))
	m.toLabel = make(map[int]int, len(raw))
	for key, person := range raw {
		label, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("invalid label key %q: %w", key, err)
		}
		m.toPerson[label] = person
		m.toLabel[person] = label
	}
	return nil
}

// LoadLabelMap reads a label map artifact; a missing file yields an empty
// map so first-time training starts from label 1.
func LoadLabelMap(path string) (*LabelMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewLabelMap(), nil
		}
		return nil, err
	}
	m := NewLabelMap()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse label map: %w", err)
	}
	return m, nil
}

// Save writes the artifact atomically.
func (m *LabelMap) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
