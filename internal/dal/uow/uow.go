package uow

import (
	"context"
	"errors"

	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/icatalogrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/postgres"
	catalogrepo "github.com/corray333/backend-labs/foodorder/internal/dal/repositories/catalog/postgres"
	orderrepo "github.com/corray333/backend-labs/foodorder/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/corray333/backend-labs/foodorder/internal/dal/repositories/outbox/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type unitOfWork struct {
	pool        *pgxpool.Pool
	tx          pgx.Tx
	catalogRepo icatalogrepo.ICatalogRepository
	orderRepo   iorderrepo.IOrderRepository
	outboxRepo  ioutboxrepo.IOutboxRepository
}

func (u *unitOfWork) CatalogRepository() icatalogrepo.ICatalogRepository {
	return u.catalogRepo
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func NewUnitOfWork(client *postgres.Client) *unitOfWork {
	u := &unitOfWork{pool: client.Pool()}
	u.bind(client.Pool())

	return u
}

func (u *unitOfWork) bind(conn postgres.GenericConn) {
	u.catalogRepo = catalogrepo.NewPostgresCatalogRepository(conn)
	u.orderRepo = orderrepo.NewPostgresOrderRepository(conn)
	u.outboxRepo = outboxrepo.NewPostgresOutboxRepository(conn)
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}

	u.tx = tx
	// Rebind the repositories to the transaction
	u.bind(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	defer u.finish()

	return u.tx.Commit(ctx)
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	defer u.finish()

	err := u.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}

	return err
}

func (u *unitOfWork) finish() {
	u.tx = nil
	u.bind(u.pool)
}
