package datastore

import (
	"context"
	"time"

	"vouchswap/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableUser(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.User)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.User)(nil)).Index("index_exchange_user_banned").IfNotExists().Column("banned").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.User)(nil)).Index("index_exchange_user_username").IfNotExists().Column("username").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func FindUserByID(ctx context.Context, db bun.IDB, userID int64) (*models.User, error) {
	var user models.User
	err := db.NewSelect().Model(&user).Where("id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByIDForUpdate locks the user row until the surrounding
// transaction ends. Balance and quota decisions happen under this lock.
func FindUserByIDForUpdate(ctx context.Context, db bun.IDB, userID int64) (*models.User, error) {
	var user models.User
	err := db.NewSelect().Model(&user).Where("id = ?", userID).For("UPDATE").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func CreateUser(ctx context.Context, db bun.IDB, user *models.User) (*models.User, error) {
	_, err := db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func UpdateUserProfile(ctx context.Context, db bun.IDB, user *models.User) (*models.User, error) {
	_, err := db.NewUpdate().Model(user).
		Set("username = ?", user.Username).
		Set("first_name = ?", user.FirstName).
		Set("last_name = ?", user.LastName).
		Set("language_code = ?", user.LanguageCode).
		Set("updated_at = current_timestamp").
		WherePK().Exec(ctx)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func UpdateUserBalance(ctx context.Context, db bun.IDB, userID int64, balance int) error {
	_, err := db.NewUpdate().
		Model((*models.User)(nil)).
		Set("balance = ?", balance).
		Set("updated_at = current_timestamp").
		Where("id = ?", userID).
		Exec(ctx)
	return err
}

func BanUser(ctx context.Context, db bun.IDB, userID int64, reason string, at time.Time) error {
	_, err := db.NewUpdate().
		Model((*models.User)(nil)).
		Set("banned = true").
		Set("banned_at = ?", at).
		Set("ban_reason = ?", reason).
		Set("updated_at = current_timestamp").
		Where("id = ?", userID).
		Exec(ctx)
	return err
}

func UnbanUser(ctx context.Context, db bun.IDB, userID int64) error {
	_, err := db.NewUpdate().
		Model((*models.User)(nil)).
		Set("banned = false").
		Set("banned_at = null").
		Set("ban_reason = null").
		Set("updated_at = current_timestamp").
		Where("id = ?", userID).
		Exec(ctx)
	return err
}

// StampUserReport records that the user spent their report for the day.
func StampUserReport(ctx context.Context, db bun.IDB, userID int64, at time.Time) error {
	_, err := db.NewUpdate().
		Model((*models.User)(nil)).
		Set("last_report_at = ?", at).
		Set("report_count = report_count + 1").
		Set("updated_at = current_timestamp").
		Where("id = ?", userID).
		Exec(ctx)
	return err
}

func BumpUserUploadCount(ctx context.Context, db bun.IDB, userID int64) error {
	_, err := db.NewUpdate().
		Model((*models.User)(nil)).
		Set("upload_count = upload_count + 1").
		Set("updated_at = current_timestamp").
		Where("id = ?", userID).
		Exec(ctx)
	return err
}

func BumpUserClaimCount(ctx context.Context, db bun.IDB, userID int64) error {
	_, err := db.NewUpdate().
		Model((*models.User)(nil)).
		Set("claim_count = claim_count + 1").
		Set("updated_at = current_timestamp").
		Where("id = ?", userID).
		Exec(ctx)
	return err
}

func CountUsers(ctx context.Context, db *bun.DB) (int, error) {
	count, err := db.NewSelect().Model((*models.User)(nil)).Count(ctx)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func GetUsersByLimit(ctx context.Context, db *bun.DB, limit, offset int) ([]*models.User, error) {
	var users []*models.User
	err := db.NewSelect().Model(&users).Order("created_at ASC").Limit(limit).Offset(offset).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return users, nil
}

// RecountUserStats rebuilds the advisory counters from the authoritative
// tables. The counters are display hints; nothing decision-making reads them.
func RecountUserStats(ctx context.Context, db *bun.DB, userID int64) error {
	_, err := db.NewRaw(`
		update exchange_user set
			upload_count = (select count(*) from voucher where uploader_id = exchange_user.id),
			claim_count = (select count(*) from coin_transaction where user_id = exchange_user.id and kind = ?),
			report_count = (select count(*) from report where reporter_id = exchange_user.id),
			updated_at = current_timestamp
		where id = ?`, models.TransactionKindClaimSpend, userID).Exec(ctx)
	return err
}
