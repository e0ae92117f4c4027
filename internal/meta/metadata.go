// Package meta provides the free-form key/value attributes attached to
// accounts, journal entries and documents (external references, FBR ids,
// branch codes). Keys are slugs; values are bounded strings.
package meta

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/tinoosan/bizbooks/internal/errs"
	"github.com/tinoosan/bizbooks/internal/slug"
)

// Metadata is a small string map with validation and stable JSON encoding.
type Metadata map[string]string

const (
	MaxPairs     = 20
	MaxValLen    = 256
	MaxTotalJSON = 4096
)

// New copies m. A nil map yields an empty Metadata.
func New(m map[string]string) Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m Metadata) Clone() Metadata { return New(m) }

func (m Metadata) Get(k string) (string, bool) { v, ok := m[k]; return v, ok }

// Set stores k=v, silently ignoring pairs that could never validate.
func (m Metadata) Set(k, v string) {
	if _, exists := m[k]; !exists && len(m) >= MaxPairs {
		return
	}
	if !slug.IsSlug(k) || len(v) > MaxValLen {
		return
	}
	m[k] = v
}

func (m Metadata) Del(k string) { delete(m, k) }

// Merge copies other into m in key order so the pair limit drops the same keys every time.
func (m Metadata) Merge(other Metadata) {
	for _, k := range other.keys() {
		m.Set(k, other[k])
	}
}

// Validate reports the first limit m breaks as a field error on "metadata".
func (m Metadata) Validate() error {
	if len(m) > MaxPairs {
		return errs.FieldError{Field: "metadata", Message: "too many pairs"}
	}
	for _, k := range m.keys() {
		if !slug.IsSlug(k) {
			return errs.FieldError{Field: "metadata", Message: "key " + k + " must match " + slug.Pattern}
		}
		if len(m[k]) > MaxValLen {
			return errs.FieldError{Field: "metadata", Message: "value for " + k + " too long"}
		}
	}
	b, err := m.MarshalStableJSON()
	if err != nil {
		return err
	}
	if len(b) > MaxTotalJSON {
		return errs.FieldError{Field: "metadata", Message: "exceeds max json size"}
	}
	return nil
}

func (m Metadata) keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalStableJSON returns a deterministic JSON representation with keys sorted.
func (m Metadata) MarshalStableJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, k := range m.keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(m[k])
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m Metadata) MarshalJSON() ([]byte, error) { return m.MarshalStableJSON() }

func (m *Metadata) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = Metadata{}
		return nil
	}
	var tmp map[string]string
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*m = New(tmp)
	return nil
}
