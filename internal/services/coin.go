package services

import (
	"context"

	"github.com/samber/do"
	"github.com/uptrace/bun"

	"vouchswap/internal/datastore"
	"vouchswap/internal/models"
)

// ApplyCredit clamps a credit at MAX_COINS and returns the new balance
// plus the delta actually applied. Ledger rows record the applied delta,
// never the nominal amount, so balance always equals the transaction sum.
func ApplyCredit(balance, amount int) (newBalance, applied int) {
	newBalance = balance + amount
	if newBalance > MAX_COINS {
		newBalance = MAX_COINS
	}

	return newBalance, newBalance - balance
}

// ServiceLedger is the read and audit surface over coin transactions.
// The writes happen inside the upload/claim/report transactions.
type ServiceLedger struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
}

func NewServiceLedger(container *do.Injector) (*ServiceLedger, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	return &ServiceLedger{container, postgresDB, readonlyPostgresDB}, nil
}

func (service *ServiceLedger) GetUserTransactions(ctx context.Context, userID int64, limit, offset int) ([]*models.CoinTransaction, error) {
	return datastore.GetTransactionsByUser(ctx, service.readonlyPostgresDB, userID, limit, offset)
}

// VerifyUserLedger recomputes one user's balance from their transactions.
func (service *ServiceLedger) VerifyUserLedger(ctx context.Context, userID int64) (*models.LedgerDrift, error) {
	user, err := datastore.FindUserByID(ctx, service.readonlyPostgresDB, userID)
	if err != nil {
		return nil, err
	}

	sum, err := datastore.SumTransactionsByUser(ctx, service.readonlyPostgresDB, userID)
	if err != nil {
		return nil, err
	}

	if user.Balance == sum {
		return nil, nil
	}

	return &models.LedgerDrift{UserID: userID, Balance: user.Balance, Sum: sum}, nil
}

// FindLedgerDrift scans every user. Expensive; operator tooling only.
func (service *ServiceLedger) FindLedgerDrift(ctx context.Context) ([]*models.LedgerDrift, error) {
	return datastore.FindLedgerDrift(ctx, service.readonlyPostgresDB)
}
