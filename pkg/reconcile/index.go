package reconcile

import (
	"strings"

	"github.com/google/uuid"
)

// ExistingKeys is the candidate-key projection of one stored record.
type ExistingKeys struct {
	ID   uuid.UUID
	Keys map[Field]string
}

// ExistingIndex maps, per candidate key, the lowercased key value to a stored record id.
// It is read-only scaffolding for one invocation, not a source of truth.
type ExistingIndex struct {
	byKey map[Field]map[string]uuid.UUID
}

func NormalizeKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// BuildIndex indexes only the given keys. Later records overwrite earlier ones on equal values.
func BuildIndex(keys []Field, existing []ExistingKeys) *ExistingIndex {
	idx := &ExistingIndex{byKey: make(map[Field]map[string]uuid.UUID, len(keys))}
	for _, k := range keys {
		idx.byKey[k] = make(map[string]uuid.UUID, len(existing))
	}
	for _, rec := range existing {
		for _, k := range keys {
			v := NormalizeKey(rec.Keys[k])
			if v == "" {
				continue
			}
			idx.byKey[k][v] = rec.ID
		}
	}
	return idx
}

func (i *ExistingIndex) Lookup(key Field, value string) (uuid.UUID, bool) {
	if i == nil {
		return uuid.Nil, false
	}
	m, ok := i.byKey[key]
	if !ok {
		return uuid.Nil, false
	}
	v := NormalizeKey(value)
	if v == "" {
		return uuid.Nil, false
	}
	id, ok := m[v]
	return id, ok
}

// Len reports how many distinct values are indexed for key.
func (i *ExistingIndex) Len(key Field) int {
	if i == nil {
		return 0
	}
	return len(i.byKey[key])
}
