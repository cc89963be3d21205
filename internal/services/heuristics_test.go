package services

import (
	"testing"

	"vouchswap/internal/models"
)

func claims(flags ...bool) []*models.ClaimRecord {
	records := make([]*models.ClaimRecord, len(flags))
	for i, reported := range flags {
		records[i] = &models.ClaimRecord{VoucherID: int64(100 + i), Reported: reported}
	}
	return records
}

func uploads(flags ...bool) []*models.UploadRecord {
	records := make([]*models.UploadRecord, len(flags))
	for i, reported := range flags {
		records[i] = &models.UploadRecord{VoucherID: int64(200 + i), Reported: reported}
	}
	return records
}

func TestReporterVerdict(t *testing.T) {
	t.Run("Given two prior reports When the third lands in the window Then ban", func(t *testing.T) {
		window := claims(false, true, true, false, false)
		window[0].VoucherID = 42 // the claim being reported right now
		if !ReporterVerdict(window, 42) {
			t.Error("expected ban")
		}
	})

	t.Run("Given one prior report When the second lands Then no ban", func(t *testing.T) {
		window := claims(false, true, false, false, false)
		window[0].VoucherID = 42
		if ReporterVerdict(window, 42) {
			t.Error("expected no ban")
		}
	})

	t.Run("Given three prior reports already in the window Then ban regardless of the current voucher", func(t *testing.T) {
		window := claims(true, true, true, false, false)
		if !ReporterVerdict(window, 999) {
			t.Error("expected ban")
		}
	})

	t.Run("Given the current voucher outside the window Then only stored reports count", func(t *testing.T) {
		window := claims(false, true, true, false, false)
		if ReporterVerdict(window, 999) {
			t.Error("expected no ban")
		}
	})

	t.Run("Given a current voucher already flagged Then it is not double counted", func(t *testing.T) {
		window := claims(true, true, false, false, false)
		window[0].VoucherID = 42
		if ReporterVerdict(window, 42) {
			t.Error("expected no ban, trip is three distinct vouchers")
		}
	})

	t.Run("Given more rows than the window Then only the newest five count", func(t *testing.T) {
		// three reports, but the third sits past the window edge
		window := claims(true, true, false, false, false, true, true)
		if ReporterVerdict(window, 999) {
			t.Error("expected no ban")
		}
	})

	t.Run("Given fewer claims than the window Then the short window still trips", func(t *testing.T) {
		window := claims(true, true)
		window = append(window, &models.ClaimRecord{VoucherID: 42})
		if !ReporterVerdict(window, 42) {
			t.Error("expected ban")
		}
	})
}

func TestUploaderVerdict(t *testing.T) {
	t.Run("Given three of the last five uploads reported Then ban", func(t *testing.T) {
		if !UploaderVerdict(uploads(true, false, true, true, false), 12, HIGH_VOLUME_UPLOAD_COUNT_DEFAULT) {
			t.Error("expected ban")
		}
	})

	t.Run("Given two of the last five uploads reported Then no ban", func(t *testing.T) {
		if UploaderVerdict(uploads(true, false, true, false, false), 12, HIGH_VOLUME_UPLOAD_COUNT_DEFAULT) {
			t.Error("expected no ban")
		}
	})

	t.Run("Given a high-volume uploader Then three of ten is not enough", func(t *testing.T) {
		window := uploads(true, false, true, true, false, false, false, false, false, false)
		if UploaderVerdict(window, 80, HIGH_VOLUME_UPLOAD_COUNT_DEFAULT) {
			t.Error("expected no ban")
		}
	})

	t.Run("Given a high-volume uploader Then five of ten trips", func(t *testing.T) {
		window := uploads(true, true, true, true, true, false, false, false, false, false)
		if !UploaderVerdict(window, 80, HIGH_VOLUME_UPLOAD_COUNT_DEFAULT) {
			t.Error("expected ban")
		}
	})

	t.Run("Given exactly the high-volume threshold Then the wide window applies", func(t *testing.T) {
		window := uploads(true, true, true, false, false, false, false, false, false, false)
		if UploaderVerdict(window, HIGH_VOLUME_UPLOAD_COUNT_DEFAULT, HIGH_VOLUME_UPLOAD_COUNT_DEFAULT) {
			t.Error("expected no ban, three of ten under the wide window")
		}
	})

	t.Run("Given an admitted report cleared from the window Then the would-be third does not trip", func(t *testing.T) {
		// the row for the admitted voucher now reads unreported
		window := uploads(true, false, false, true, false)
		if UploaderVerdict(window, 12, HIGH_VOLUME_UPLOAD_COUNT_DEFAULT) {
			t.Error("expected no ban")
		}
	})

	t.Run("Given a casual uploader with a long history row set Then only five count", func(t *testing.T) {
		window := uploads(false, false, true, true, false, true, true, true)
		if UploaderVerdict(window, 12, HIGH_VOLUME_UPLOAD_COUNT_DEFAULT) {
			t.Error("expected no ban, reports past the window edge")
		}
	})
}
