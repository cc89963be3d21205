package datastore

import (
	"context"

	"vouchswap/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableReport(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Report)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Report)(nil)).
		Index("index_report_voucher_reporter").IfNotExists().Unique().
		Column("voucher_id", "reporter_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Report)(nil)).
		Index("index_report_uploader").IfNotExists().
		Column("uploader_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Report)(nil)).
		Index("index_report_reporter").IfNotExists().
		Column("reporter_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateReport(ctx context.Context, db bun.IDB, report *models.Report) (*models.Report, error) {
	_, err := db.NewInsert().Model(report).Exec(ctx)
	if err != nil {
		return nil, err
	}

	return report, nil
}

func FindReportByID(ctx context.Context, db bun.IDB, reportID int64) (*models.Report, error) {
	var report models.Report
	err := db.NewSelect().Model(&report).Where("id = ?", reportID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func ReportExists(ctx context.Context, db bun.IDB, voucherID, reporterID int64) (bool, error) {
	return db.NewSelect().Model((*models.Report)(nil)).
		Where("voucher_id = ?", voucherID).
		Where("reporter_id = ?", reporterID).
		Exists(ctx)
}

// DeleteReport is the uploader-admission correction. The row is removed
// outright: the ban heuristics recompute from the live report set, so a
// soft flag would not clear the uploader.
func DeleteReport(ctx context.Context, db *bun.DB, reportID int64) error {
	_, err := db.NewDelete().Model((*models.Report)(nil)).Where("id = ?", reportID).Exec(ctx)
	return err
}

func SetReportReplacement(ctx context.Context, db bun.IDB, reportID, replacementID int64) error {
	_, err := db.NewUpdate().
		Model((*models.Report)(nil)).
		Set("replacement_id = ?", replacementID).
		Where("id = ?", reportID).
		Exec(ctx)
	return err
}

func GetReportsByUploader(ctx context.Context, db bun.IDB, uploaderID int64, limit, offset int) ([]*models.Report, error) {
	var reports []*models.Report
	err := db.NewSelect().Model(&reports).
		Where("uploader_id = ?", uploaderID).
		Order("created_at DESC", "id DESC").
		Limit(limit).Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return reports, nil
}

func GetRecentReports(ctx context.Context, db *bun.DB, limit, offset int) ([]*models.Report, error) {
	var reports []*models.Report
	err := db.NewSelect().Model(&reports).
		Order("created_at DESC", "id DESC").
		Limit(limit).Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return reports, nil
}

// RecentClaimRecords returns the reporter's last n claims, newest first,
// each flagged with whether this same reporter already filed against it.
func RecentClaimRecords(ctx context.Context, db bun.IDB, reporterID int64, n int) ([]*models.ClaimRecord, error) {
	var records []*models.ClaimRecord
	err := db.NewSelect().
		ColumnExpr("v.id AS voucher_id").
		ColumnExpr("EXISTS (SELECT 1 FROM report r WHERE r.voucher_id = v.id AND r.reporter_id = ?) AS reported", reporterID).
		TableExpr("voucher v").
		Where("v.claimer_id = ?", reporterID).
		OrderExpr("v.claimed_at DESC, v.id DESC").
		Limit(n).
		Scan(ctx, &records)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// RecentUploadRecords returns the uploader's last n uploads, newest first,
// each flagged with whether a non-banned reporter filed against it. Reports
// from banned reporters are excluded so one bad actor cannot sink an
// uploader on their own.
func RecentUploadRecords(ctx context.Context, db bun.IDB, uploaderID int64, n int) ([]*models.UploadRecord, error) {
	var records []*models.UploadRecord
	err := db.NewSelect().
		ColumnExpr("v.id AS voucher_id").
		ColumnExpr("EXISTS (SELECT 1 FROM report r JOIN exchange_user u ON u.id = r.reporter_id WHERE r.voucher_id = v.id AND u.banned = false) AS reported").
		TableExpr("voucher v").
		Where("v.uploader_id = ?", uploaderID).
		OrderExpr("v.created_at DESC, v.id DESC").
		Limit(n).
		Scan(ctx, &records)
	if err != nil {
		return nil, err
	}

	return records, nil
}
