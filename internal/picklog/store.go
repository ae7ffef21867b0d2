package picklog

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultStoreCapacity bounds how many uploaded snapshots are kept in memory.
const DefaultStoreCapacity = 16

// DatasetStore keeps parsed snapshots in memory, keyed by content hash. Datasets are never
// mutated after Put; the oldest snapshot is evicted once capacity is reached.
type DatasetStore struct {
	mu       sync.RWMutex
	capacity int
	sets     map[string]*Dataset
	order    []string
}

// NewDatasetStore creates an empty store. A non-positive capacity uses DefaultStoreCapacity.
func NewDatasetStore(capacity int) *DatasetStore {
	if capacity <= 0 {
		capacity = DefaultStoreCapacity
	}
	return &DatasetStore{
		capacity: capacity,
		sets:     make(map[string]*Dataset),
	}
}

// Put stores ds. Uploading identical bytes again returns the existing snapshot and true.
func (s *DatasetStore) Put(ds *Dataset) (*Dataset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sets[ds.ID]; ok {
		return existing, true
	}

	for len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.sets, oldest)
		log.Debug().Str("dataset", oldest).Msg("Evicted dataset from store")
	}

	s.sets[ds.ID] = ds
	s.order = append(s.order, ds.ID)
	return ds, false
}

// Get returns the snapshot for id.
func (s *DatasetStore) Get(id string) (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.sets[id]
	if !ok {
		return nil, ErrDatasetNotFound
	}
	return ds, nil
}

// List returns the stored snapshots, oldest first.
func (s *DatasetStore) List() []*Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Dataset, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sets[id])
	}
	return out
}

// Delete drops a snapshot. Unknown ids are not an error.
func (s *DatasetStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sets[id]; !ok {
		return
	}
	delete(s.sets, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of stored snapshots.
func (s *DatasetStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
