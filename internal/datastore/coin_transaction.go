package datastore

import (
	"context"
	"time"

	"vouchswap/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableCoinTransaction(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.CoinTransaction)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.CoinTransaction)(nil)).
		Index("index_coin_transaction_user").IfNotExists().
		Column("user_id", "created_at").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.CoinTransaction)(nil)).
		Index("index_coin_transaction_user_kind").IfNotExists().
		Column("user_id", "kind", "created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateCoinTransaction(ctx context.Context, db bun.IDB, transaction *models.CoinTransaction) (*models.CoinTransaction, error) {
	_, err := db.NewInsert().Model(transaction).Exec(ctx)
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

// CountClaimSpendsSince backs the rolling claim quota. Replacement claims
// write no claim_spend row, so compensatory inventory never burns quota.
func CountClaimSpendsSince(ctx context.Context, db bun.IDB, userID int64, since time.Time) (int, error) {
	return db.NewSelect().Model((*models.CoinTransaction)(nil)).
		Where("user_id = ?", userID).
		Where("kind = ?", models.TransactionKindClaimSpend).
		Where("created_at >= ?", since).
		Count(ctx)
}

func GetTransactionsByUser(ctx context.Context, db bun.IDB, userID int64, limit, offset int) ([]*models.CoinTransaction, error) {
	var transactions []*models.CoinTransaction
	err := db.NewSelect().Model(&transactions).
		Where("user_id = ?", userID).
		Order("created_at DESC", "id DESC").
		Limit(limit).Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

func SumTransactionsByUser(ctx context.Context, db bun.IDB, userID int64) (int, error) {
	var sum int
	err := db.NewSelect().Model((*models.CoinTransaction)(nil)).
		ColumnExpr("coalesce(sum(amount), 0)").
		Where("user_id = ?", userID).
		Scan(ctx, &sum)
	if err != nil {
		return 0, err
	}

	return sum, nil
}

// FindLedgerDrift lists every user whose balance disagrees with the sum of
// their transactions. Healthy systems return no rows.
func FindLedgerDrift(ctx context.Context, db *bun.DB) ([]*models.LedgerDrift, error) {
	var drifts []*models.LedgerDrift
	err := db.NewSelect().
		ColumnExpr("u.id AS user_id, u.balance, coalesce(t.sum, 0) AS sum").
		TableExpr("exchange_user u").
		Join("LEFT JOIN (SELECT user_id, SUM(amount) sum FROM coin_transaction GROUP BY user_id) t ON u.id = t.user_id").
		Where("u.balance != coalesce(t.sum, 0)").
		Scan(ctx, &drifts)
	if err != nil {
		return nil, err
	}

	return drifts, nil
}

func GetTransactionsBetween(ctx context.Context, db *bun.DB, from, to time.Time, limit, offset int) ([]*models.CoinTransaction, error) {
	var transactions []*models.CoinTransaction
	err := db.NewSelect().Model(&transactions).
		Where("created_at >= ?", from).
		Where("created_at < ?", to).
		Order("id ASC").
		Limit(limit).Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}
