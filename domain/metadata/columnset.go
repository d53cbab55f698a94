package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ColumnSet maps column names to metadata and preserves insertion order,
// which is the order stages visit columns in.
type ColumnSet struct {
	order []string
	byKey map[string]*Column
}

// NewColumnSet creates an empty set
func NewColumnSet() *ColumnSet {
	return &ColumnSet{byKey: make(map[string]*Column)}
}

// Len returns the number of entries
func (s *ColumnSet) Len() int { return len(s.order) }

// Names returns the column names in insertion order
func (s *ColumnSet) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Get returns the entry for name
func (s *ColumnSet) Get(name string) (*Column, bool) {
	c, ok := s.byKey[name]
	return c, ok
}

// Set inserts or replaces an entry; replacing keeps the original position
func (s *ColumnSet) Set(name string, c *Column) {
	if _, ok := s.byKey[name]; !ok {
		s.order = append(s.order, name)
	}
	s.byKey[name] = c
}

// Delete removes an entry if present
func (s *ColumnSet) Delete(name string) {
	if _, ok := s.byKey[name]; !ok {
		return
	}
	delete(s.byKey, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Each visits entries in insertion order
func (s *ColumnSet) Each(fn func(name string, c *Column)) {
	for _, n := range s.Names() {
		fn(n, s.byKey[n])
	}
}

func (s *ColumnSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(s.byKey[n])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *ColumnSet) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("columns: expected object, got %v", tok)
	}
	s.order = nil
	s.byKey = make(map[string]*Column)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("columns: expected key, got %v", tok)
		}
		var c Column
		if err := dec.Decode(&c); err != nil {
			return fmt.Errorf("columns: %s: %w", name, err)
		}
		s.Set(name, &c)
	}
	_, err = dec.Token()
	return err
}
