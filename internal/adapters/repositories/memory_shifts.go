package repositories

import (
	"context"
	"sync"

	"delivery-ops-service/internal/domain"
)

// MemoryShiftStore holds shifts and their breaks behind one lock, so a shift
// Update and the break writes made inside it are a single unit.
type MemoryShiftStore struct {
	mu     sync.Mutex
	shifts map[string]*domain.Shift
	breaks map[string]*domain.Break
}

func NewMemoryShiftStore() *MemoryShiftStore {
	return &MemoryShiftStore{
		shifts: make(map[string]*domain.Shift),
		breaks: make(map[string]*domain.Break),
	}
}

// Breaks returns the BreakStore view sharing this store's lock.
func (s *MemoryShiftStore) Breaks() *MemoryBreakStore {
	return &MemoryBreakStore{s: s}
}

type memTxKey struct{}

// pending collects break writes made inside an Update until it commits.
type pending struct {
	breaks map[string]*domain.Break
}

func txFrom(ctx context.Context) *pending {
	p, _ := ctx.Value(memTxKey{}).(*pending)
	return p
}

func (s *MemoryShiftStore) Create(ctx context.Context, sh *domain.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cur := range s.shifts {
		if cur.DriverID == sh.DriverID && cur.Open() {
			return domain.ErrAlreadyActive
		}
	}
	s.shifts[sh.ID] = cloneShift(sh)
	return nil
}

func (s *MemoryShiftStore) Get(ctx context.Context, id string) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.shifts[id]
	if !ok {
		return nil, shiftNotFound(id)
	}
	return cloneShift(sh), nil
}

func (s *MemoryShiftStore) GetOpenByDriver(ctx context.Context, driverID string) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sh := range s.shifts {
		if sh.DriverID == driverID && sh.Open() {
			return cloneShift(sh), nil
		}
	}
	return nil, nil
}

func (s *MemoryShiftStore) Update(ctx context.Context, id string, mutate func(ctx context.Context, sh *domain.Shift) error) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.shifts[id]
	if !ok {
		return nil, shiftNotFound(id)
	}

	tx := &pending{breaks: make(map[string]*domain.Break)}
	work := cloneShift(cur)
	if err := mutate(context.WithValue(ctx, memTxKey{}, tx), work); err != nil {
		return nil, err
	}

	s.shifts[id] = work
	for bid, b := range tx.breaks {
		s.breaks[bid] = b
	}
	return cloneShift(work), nil
}

// MemoryBreakStore is the break side of MemoryShiftStore.
type MemoryBreakStore struct {
	s *MemoryShiftStore
}

// Inside a shift Update the shift lock is already held, so break calls carrying
// that context read and write the pending set without locking.
func (b *MemoryBreakStore) lock(ctx context.Context) (*pending, func()) {
	if tx := txFrom(ctx); tx != nil {
		return tx, func() {}
	}
	b.s.mu.Lock()
	return nil, b.s.mu.Unlock
}

func (b *MemoryBreakStore) Create(ctx context.Context, br *domain.Break) error {
	tx, unlock := b.lock(ctx)
	defer unlock()

	if tx != nil {
		tx.breaks[br.ID] = cloneBreak(br)
		return nil
	}
	b.s.breaks[br.ID] = cloneBreak(br)
	return nil
}

func (b *MemoryBreakStore) Get(ctx context.Context, id string) (*domain.Break, error) {
	tx, unlock := b.lock(ctx)
	defer unlock()

	if tx != nil {
		if br, ok := tx.breaks[id]; ok {
			return cloneBreak(br), nil
		}
	}
	br, ok := b.s.breaks[id]
	if !ok {
		return nil, &domain.Error{Code: domain.CodeBreakNotFound, Message: "break " + id + " not found"}
	}
	return cloneBreak(br), nil
}

func (b *MemoryBreakStore) GetOpenByShift(ctx context.Context, shiftID string) (*domain.Break, error) {
	tx, unlock := b.lock(ctx)
	defer unlock()

	if tx != nil {
		for _, br := range tx.breaks {
			if br.ShiftID == shiftID && br.Open() {
				return cloneBreak(br), nil
			}
		}
	}
	for _, br := range b.s.breaks {
		if br.ShiftID != shiftID || !br.Open() {
			continue
		}
		if tx != nil {
			if staged, ok := tx.breaks[br.ID]; ok && !staged.Open() {
				continue
			}
		}
		return cloneBreak(br), nil
	}
	return nil, nil
}

func (b *MemoryBreakStore) Save(ctx context.Context, br *domain.Break) error {
	tx, unlock := b.lock(ctx)
	defer unlock()

	if _, ok := b.s.breaks[br.ID]; !ok {
		if tx == nil {
			return &domain.Error{Code: domain.CodeBreakNotFound, Message: "break " + br.ID + " not found"}
		}
		if _, staged := tx.breaks[br.ID]; !staged {
			return &domain.Error{Code: domain.CodeBreakNotFound, Message: "break " + br.ID + " not found"}
		}
	}

	if tx != nil {
		tx.breaks[br.ID] = cloneBreak(br)
		return nil
	}
	b.s.breaks[br.ID] = cloneBreak(br)
	return nil
}

func cloneShift(sh *domain.Shift) *domain.Shift {
	c := *sh
	if sh.EndedAt != nil {
		v := *sh.EndedAt
		c.EndedAt = &v
	}
	if sh.Summary != nil {
		v := *sh.Summary
		v.CashOrders = append([]domain.Order(nil), sh.Summary.CashOrders...)
		c.Summary = &v
	}
	return &c
}

func cloneBreak(b *domain.Break) *domain.Break {
	c := *b
	if b.EndedAt != nil {
		v := *b.EndedAt
		c.EndedAt = &v
	}
	return &c
}

func shiftNotFound(id string) error {
	return &domain.Error{Code: domain.CodeShiftNotFound, Message: "shift " + id + " not found"}
}
