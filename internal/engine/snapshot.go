package engine

import (
	"sync/atomic"
	"time"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/google/btree"
	"github.com/govalues/decimal"
)

// treeDegree is the B-tree degree for the instrument index.
const treeDegree = 32

// nameLess orders instruments by name.
func nameLess(a, b domain.Instrument) bool {
	return a.Name < b.Name
}

func newInstrumentTree() *btree.BTreeG[domain.Instrument] {
	return btree.NewG(treeDegree, nameLess)
}

// Snapshot is an immutable view of the market after one state transition.
// Readers may hold it for as long as they like.
type Snapshot struct {
	Version   uint64
	Loaded    bool
	Cash      decimal.Decimal
	UpdatedAt time.Time

	instruments *btree.BTreeG[domain.Instrument]
}

// Instrument returns the named instrument, including its history.
func (s *Snapshot) Instrument(name string) (domain.Instrument, bool) {
	if s.instruments == nil {
		return domain.Instrument{}, false
	}
	return s.instruments.Get(domain.Instrument{Name: name})
}

// Instruments returns all instruments in ascending name order.
func (s *Snapshot) Instruments() []domain.Instrument {
	if s.instruments == nil {
		return []domain.Instrument{}
	}
	result := make([]domain.Instrument, 0, s.instruments.Len())
	s.instruments.Ascend(func(i domain.Instrument) bool {
		result = append(result, i)
		return true
	})
	return result
}

// Len returns the number of instruments.
func (s *Snapshot) Len() int {
	if s.instruments == nil {
		return 0
	}
	return s.instruments.Len()
}

// snapshotStore publishes snapshots to concurrent readers.
type snapshotStore struct {
	current atomic.Pointer[Snapshot]
}

func (s *snapshotStore) load() *Snapshot {
	return s.current.Load()
}

// publish stores a snapshot of tree. The tree is cloned copy-on-write, so
// the caller may keep mutating it without affecting readers.
func (s *snapshotStore) publish(tree *btree.BTreeG[domain.Instrument], cash decimal.Decimal, loaded bool, now time.Time) *Snapshot {
	var version uint64
	if prev := s.current.Load(); prev != nil {
		version = prev.Version + 1
	}
	snap := &Snapshot{
		Version:     version,
		Loaded:      loaded,
		Cash:        cash,
		UpdatedAt:   now,
		instruments: tree.Clone(),
	}
	s.current.Store(snap)
	return snap
}
