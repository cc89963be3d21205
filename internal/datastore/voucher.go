package datastore

import (
	"context"
	"time"

	"vouchswap/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableVoucher(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Voucher)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Voucher)(nil)).
		Index("index_voucher_shelf").IfNotExists().
		Column("status", "denomination", "expires_at").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Voucher)(nil)).
		Index("index_voucher_uploader").IfNotExists().
		Column("uploader_id", "created_at").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Voucher)(nil)).
		Index("index_voucher_claimer").IfNotExists().
		Column("claimer_id", "claimed_at").Exec(ctx)
	if err != nil {
		return err
	}

	// every persisted voucher passed validation, so NULL barcodes never occur
	// in practice; the partial form keeps the constraint honest anyway
	_, err = db.NewCreateIndex().Model((*models.Voucher)(nil)).
		Index("index_voucher_barcode").IfNotExists().Unique().
		Column("barcode").
		Where("barcode IS NOT NULL").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateVoucher(ctx context.Context, db bun.IDB, voucher *models.Voucher) (*models.Voucher, error) {
	_, err := db.NewInsert().Model(voucher).Exec(ctx)
	if err != nil {
		return nil, err
	}

	return voucher, nil
}

func FindVoucherByID(ctx context.Context, db bun.IDB, voucherID int64) (*models.Voucher, error) {
	var voucher models.Voucher
	err := db.NewSelect().Model(&voucher).Where("id = ?", voucherID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

func FindVoucherByIDForUpdate(ctx context.Context, db bun.IDB, voucherID int64) (*models.Voucher, error) {
	var voucher models.Voucher
	err := db.NewSelect().Model(&voucher).Where("id = ?", voucherID).For("UPDATE").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

func VoucherBarcodeExists(ctx context.Context, db bun.IDB, barcode string) (bool, error) {
	return db.NewSelect().Model((*models.Voucher)(nil)).Where("barcode = ?", barcode).Exists(ctx)
}

// NextClaimableVoucher picks the most time-pressured voucher on the shelf:
// soonest expiry first, creation order as the tie-break. SKIP LOCKED keeps
// concurrent claimers from queueing on the same row; each one sees the next
// candidate instead.
func NextClaimableVoucher(ctx context.Context, db bun.IDB, denomination int, now time.Time) (*models.Voucher, error) {
	var voucher models.Voucher
	err := db.NewSelect().Model(&voucher).
		Where("status = ?", models.VoucherStatusAvailable).
		Where("denomination = ?", denomination).
		Where("(valid_from IS NULL OR valid_from <= ?)", now).
		Where("expires_at > ?", now).
		Order("expires_at ASC", "id ASC").
		Limit(1).
		For("UPDATE SKIP LOCKED").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

func MarkVoucherClaimed(ctx context.Context, db bun.IDB, voucherID int64, claimerID int64, at time.Time) error {
	_, err := db.NewUpdate().
		Model((*models.Voucher)(nil)).
		Set("status = ?", models.VoucherStatusClaimed).
		Set("claimer_id = ?", claimerID).
		Set("claimed_at = ?", at).
		Set("updated_at = current_timestamp").
		Where("id = ?", voucherID).
		Where("status = ?", models.VoucherStatusAvailable).
		Exec(ctx)
	return err
}

func MarkVoucherReported(ctx context.Context, db bun.IDB, voucherID int64) error {
	_, err := db.NewUpdate().
		Model((*models.Voucher)(nil)).
		Set("status = ?", models.VoucherStatusReported).
		Set("updated_at = current_timestamp").
		Where("id = ?", voucherID).
		Where("status = ?", models.VoucherStatusClaimed).
		Exec(ctx)
	return err
}

// ReleaseVoucher is the compensation edge: puts a claimed voucher back on
// the shelf and clears the claimer.
func ReleaseVoucher(ctx context.Context, db bun.IDB, voucherID int64) error {
	_, err := db.NewUpdate().
		Model((*models.Voucher)(nil)).
		Set("status = ?", models.VoucherStatusAvailable).
		Set("claimer_id = null").
		Set("claimed_at = null").
		Set("updated_at = current_timestamp").
		Where("id = ?", voucherID).
		Where("status = ?", models.VoucherStatusClaimed).
		Exec(ctx)
	return err
}

// ExpireVouchers sweeps the whole shelf in one statement. Safe to rerun and
// safe against live claims: a voucher claimed in the same instant no longer
// matches the available predicate.
func ExpireVouchers(ctx context.Context, db *bun.DB, now time.Time) (int64, error) {
	res, err := db.NewUpdate().
		Model((*models.Voucher)(nil)).
		Set("status = ?", models.VoucherStatusExpired).
		Set("updated_at = current_timestamp").
		Where("status = ?", models.VoucherStatusAvailable).
		Where("expires_at < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func CountUploadsSince(ctx context.Context, db bun.IDB, uploaderID int64, since time.Time) (int, error) {
	return db.NewSelect().Model((*models.Voucher)(nil)).
		Where("uploader_id = ?", uploaderID).
		Where("created_at >= ?", since).
		Count(ctx)
}

func CountUploadsByUser(ctx context.Context, db bun.IDB, uploaderID int64) (int, error) {
	return db.NewSelect().Model((*models.Voucher)(nil)).
		Where("uploader_id = ?", uploaderID).
		Count(ctx)
}

func GetVouchersByUploader(ctx context.Context, db bun.IDB, uploaderID int64, limit, offset int) ([]*models.Voucher, error) {
	var vouchers []*models.Voucher
	err := db.NewSelect().Model(&vouchers).
		Where("uploader_id = ?", uploaderID).
		Order("created_at DESC", "id DESC").
		Limit(limit).Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return vouchers, nil
}

func GetVouchersByClaimer(ctx context.Context, db bun.IDB, claimerID int64, limit, offset int) ([]*models.Voucher, error) {
	var vouchers []*models.Voucher
	err := db.NewSelect().Model(&vouchers).
		Where("claimer_id = ?", claimerID).
		Order("claimed_at DESC", "id DESC").
		Limit(limit).Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return vouchers, nil
}

func CountAvailableByDenomination(ctx context.Context, db bun.IDB, now time.Time) ([]*models.DenominationCount, error) {
	var counts []*models.DenominationCount
	err := db.NewSelect().Model((*models.Voucher)(nil)).
		ColumnExpr("denomination, count(*) AS count").
		Where("status = ?", models.VoucherStatusAvailable).
		Where("(valid_from IS NULL OR valid_from <= ?)", now).
		Where("expires_at > ?", now).
		Group("denomination").
		Order("denomination ASC").
		Scan(ctx, &counts)
	if err != nil {
		return nil, err
	}

	return counts, nil
}

// ClaimedVouchersExpiringBetween feeds the reminder job: claimed inventory
// whose window is about to close.
func ClaimedVouchersExpiringBetween(ctx context.Context, db *bun.DB, from, to time.Time) ([]*models.Voucher, error) {
	var vouchers []*models.Voucher
	err := db.NewSelect().Model(&vouchers).
		Where("status = ?", models.VoucherStatusClaimed).
		Where("expires_at > ?", from).
		Where("expires_at <= ?", to).
		Order("expires_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return vouchers, nil
}

func GetVouchersByLimit(ctx context.Context, db *bun.DB, limit, offset int) ([]*models.Voucher, error) {
	var vouchers []*models.Voucher
	err := db.NewSelect().Model(&vouchers).Order("id ASC").Limit(limit).Offset(offset).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return vouchers, nil
}
