package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore is an in-process Store used by the engine tests.
type memoryStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]map[Field]string
	order   []uuid.UUID
	keys    []Field
	failOn  map[string]error
	panicOn map[string]bool
	loadErr error
	delay   time.Duration
	writes  []string
}

func newMemoryStore(keys []Field) *memoryStore {
	return &memoryStore{
		rows:    map[uuid.UUID]map[Field]string{},
		keys:    keys,
		failOn:  map[string]error{},
		panicOn: map[string]bool{},
	}
}

func (s *memoryStore) seed(values map[Field]string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.rows[id] = values
	s.order = append(s.order, id)
	return id
}

func (s *memoryStore) LoadKeys(ctx context.Context) ([]ExistingKeys, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ExistingKeys, 0, len(s.order))
	for _, id := range s.order {
		keys := map[Field]string{}
		for _, k := range s.keys {
			if v, ok := s.rows[id][k]; ok {
				keys[k] = v
			}
		}
		out = append(out, ExistingKeys{ID: id, Keys: keys})
	}
	return out, nil
}

func (s *memoryStore) Create(ctx context.Context, rec NormalizedRecord) (uuid.UUID, error) {
	if err := s.before(rec); err != nil {
		return uuid.Nil, err
	}
	return s.seed(rec.Values()), nil
}

func (s *memoryStore) Update(ctx context.Context, id uuid.UUID, rec NormalizedRecord) error {
	if err := s.before(rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return errors.New("not found")
	}
	s.rows[id] = rec.Values()
	return nil
}

func (s *memoryStore) before(rec NormalizedRecord) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	s.writes = append(s.writes, rec.Label())
	err := s.failOn[rec.Label()]
	shouldPanic := s.panicOn[rec.Label()]
	s.mu.Unlock()
	if shouldPanic {
		panic("boom")
	}
	return err
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type sqlStateErr struct{ code string }

func (e *sqlStateErr) Error() string    { return "pg error " + e.code }
func (e *sqlStateErr) SQLState() string { return e.code }
