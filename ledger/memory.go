package ledger

import (
	"context"
	"sort"
	"sync"
)

type rowKey struct {
	kind   Kind
	handle string
}

type memRow struct {
	row
	seq uint64
}

// MemoryStore is an in-process Store. Update holds an exclusive lock for the
// whole transaction and stages writes, applying them only on success.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[rowKey]memRow
	seq    uint64
	closed bool
	opts   options
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		rows: make(map[rowKey]memRow),
		opts: buildOptions(opts),
	}
}

func (s *MemoryStore) View(ctx context.Context, fn func(Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return fn(&txn{b: &memoryBackend{s: s, readOnly: true}, now: s.opts.now})
}

func (s *MemoryStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	b := &memoryBackend{s: s, staged: make(map[rowKey]*memRow), seq: s.seq}
	if err := fn(&txn{b: b, now: s.opts.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for k, r := range b.staged {
		if r == nil {
			delete(s.rows, k)
			continue
		}
		s.rows[k] = *r
	}
	s.seq = b.seq
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type memoryBackend struct {
	s        *MemoryStore
	staged   map[rowKey]*memRow // nil value marks a deletion
	seq      uint64
	readOnly bool
}

func (b *memoryBackend) lookup(k rowKey) (memRow, bool) {
	if r, ok := b.staged[k]; ok {
		if r == nil {
			return memRow{}, false
		}
		return *r, true
	}
	r, ok := b.s.rows[k]
	return r, ok
}

func (b *memoryBackend) get(kind Kind, handle string) (row, error) {
	r, ok := b.lookup(rowKey{kind, handle})
	if !ok {
		return row{}, errRowMissing
	}
	return r.row, nil
}

func (b *memoryBackend) insert(r row) error {
	if b.readOnly {
		return errReadOnly
	}
	k := rowKey{r.Kind, r.Handle}
	if _, ok := b.lookup(k); ok {
		return errRowExists
	}
	b.seq++
	b.staged[k] = &memRow{row: r, seq: b.seq}
	return nil
}

func (b *memoryBackend) update(r row) error {
	if b.readOnly {
		return errReadOnly
	}
	k := rowKey{r.Kind, r.Handle}
	existing, ok := b.lookup(k)
	if !ok {
		return errRowMissing
	}
	r.CreatedAt = existing.CreatedAt
	b.staged[k] = &memRow{row: r, seq: existing.seq}
	return nil
}

func (b *memoryBackend) remove(kind Kind, handle string) error {
	if b.readOnly {
		return errReadOnly
	}
	k := rowKey{kind, handle}
	if _, ok := b.lookup(k); !ok {
		return errRowMissing
	}
	b.staged[k] = nil
	return nil
}

func (b *memoryBackend) list(kind Kind, by index, value string) ([]row, error) {
	matches := func(r row) bool {
		if r.Kind != kind {
			return false
		}
		if by == byOwner {
			return r.Owner == value
		}
		return r.Parent == value
	}

	var found []memRow
	for k, r := range b.s.rows {
		if _, shadowed := b.staged[k]; shadowed {
			continue
		}
		if matches(r.row) {
			found = append(found, r)
		}
	}
	for _, r := range b.staged {
		if r != nil && matches(r.row) {
			found = append(found, *r)
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })
	out := make([]row, len(found))
	for i, r := range found {
		out[i] = r.row
	}
	return out, nil
}
