package memory

import (
	"context"
	"errors"

	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/icatalogrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/ioutboxrepo"
)

// UnitOfWork groups repository calls into one atomic change. Begin takes the
// store write lock, so units of work run one at a time.
type UnitOfWork struct {
	store    *Store
	snapshot *dataset
	active   bool

	catalogRepo *CatalogRepository
	orderRepo   *OrderRepository
	outboxRepo  *OutboxRepository
}

// NewUnitOfWork creates a unit of work. Before Begin its repositories commit
// each call on their own.
func NewUnitOfWork(store *Store) *UnitOfWork {
	u := &UnitOfWork{store: store}
	u.bind(direct{store: store})

	return u
}

func (u *UnitOfWork) bind(acc access) {
	u.catalogRepo = &CatalogRepository{acc: acc}
	u.orderRepo = &OrderRepository{acc: acc}
	u.outboxRepo = NewOutboxRepository(u.store)
	u.outboxRepo.acc = acc
}

func (u *UnitOfWork) CatalogRepository() icatalogrepo.ICatalogRepository {
	return u.catalogRepo
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *UnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func (u *UnitOfWork) Begin(_ context.Context) error {
	if u.active {
		return errors.New("unit of work already started")
	}

	u.store.mu.Lock()
	u.snapshot = u.store.data.clone()
	u.active = true
	u.bind(held{store: u.store})

	return nil
}

func (u *UnitOfWork) Commit(_ context.Context) error {
	if !u.active {
		return nil
	}
	defer u.finish()

	if err := u.store.persistLocked(); err != nil {
		u.store.data = u.snapshot

		return err
	}

	return nil
}

func (u *UnitOfWork) Rollback(_ context.Context) error {
	if !u.active {
		return nil
	}
	defer u.finish()

	u.store.data = u.snapshot

	return nil
}

func (u *UnitOfWork) finish() {
	u.active = false
	u.snapshot = nil
	u.bind(direct{store: u.store})
	u.store.mu.Unlock()
}
