package services

import (
	"testing"
	"time"

	"vouchswap/internal/models"
)

func TestValidateExtraction(t *testing.T) {
	// noon, well before the same-day cutoff
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	valid := func() *models.RawExtraction {
		return &models.RawExtraction{
			Denomination: 10,
			ValidFrom:    "2024-05-09",
			ExpiryDate:   "2024-05-24",
			Barcode:      "B1",
		}
	}

	t.Run("Given a readable in-date voucher Then fields normalize and pass", func(t *testing.T) {
		fields, reason := ValidateExtraction(valid(), now)
		if reason != "" {
			t.Fatalf("expected pass, got %s", reason)
		}
		if fields.Denomination != 10 {
			t.Errorf("denomination = %d", fields.Denomination)
		}
		wantFrom := time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)
		if !fields.ValidFrom.Equal(wantFrom) {
			t.Errorf("valid from = %v, want start of day %v", fields.ValidFrom, wantFrom)
		}
		wantExpiry := time.Date(2024, 5, 24, 23, 59, 59, 999000000, time.UTC)
		if !fields.ExpiresAt.Equal(wantExpiry) {
			t.Errorf("expires at = %v, want end of day %v", fields.ExpiresAt, wantExpiry)
		}
		if fields.Barcode != "B1" {
			t.Errorf("barcode = %q", fields.Barcode)
		}
	})

	t.Run("Given an unrecognized denomination Then INVALID_TYPE", func(t *testing.T) {
		for _, denomination := range []int{0, 15, -5, 50} {
			raw := valid()
			raw.Denomination = denomination
			if _, reason := ValidateExtraction(raw, now); reason != REJECT_INVALID_TYPE {
				t.Errorf("denomination %d: got %s", denomination, reason)
			}
		}
	})

	t.Run("Given a bad denomination and other bad fields Then the type check wins", func(t *testing.T) {
		raw := &models.RawExtraction{Denomination: 0}
		if _, reason := ValidateExtraction(raw, now); reason != REJECT_INVALID_TYPE {
			t.Errorf("got %s", reason)
		}
	})

	t.Run("Given a missing or garbage valid-from Then COULD_NOT_READ_VALID_FROM", func(t *testing.T) {
		for _, from := range []string{"", "  ", "not-a-date", "2023-13-45"} {
			raw := valid()
			raw.ValidFrom = from
			if _, reason := ValidateExtraction(raw, now); reason != REJECT_COULD_NOT_READ_VALID_FROM {
				t.Errorf("valid from %q: got %s", from, reason)
			}
		}
	})

	t.Run("Given a valid-from over a year old Then it reads as a misread", func(t *testing.T) {
		raw := valid()
		raw.ValidFrom = "2023-05-09"
		if _, reason := ValidateExtraction(raw, now); reason != REJECT_COULD_NOT_READ_VALID_FROM {
			t.Errorf("got %s", reason)
		}
	})

	t.Run("Given a valid-from exactly a year old Then it still passes", func(t *testing.T) {
		raw := valid()
		raw.ValidFrom = "2023-05-10"
		if _, reason := ValidateExtraction(raw, now); reason != "" {
			t.Errorf("got %s", reason)
		}
	})

	t.Run("Given a missing or garbage expiry Then COULD_NOT_READ_EXPIRY_DATE", func(t *testing.T) {
		for _, expiry := range []string{"", "soon", "99/99/9999"} {
			raw := valid()
			raw.ExpiryDate = expiry
			if _, reason := ValidateExtraction(raw, now); reason != REJECT_COULD_NOT_READ_EXPIRY_DATE {
				t.Errorf("expiry %q: got %s", expiry, reason)
			}
		}
	})

	t.Run("Given an expiry over a year past Then misread beats expired", func(t *testing.T) {
		raw := valid()
		raw.ExpiryDate = "2022-01-01"
		if _, reason := ValidateExtraction(raw, now); reason != REJECT_COULD_NOT_READ_EXPIRY_DATE {
			t.Errorf("got %s", reason)
		}
	})

	t.Run("Given an expiry before today Then EXPIRED", func(t *testing.T) {
		raw := valid()
		raw.ExpiryDate = "2024-05-09"
		if _, reason := ValidateExtraction(raw, now); reason != REJECT_EXPIRED {
			t.Errorf("got %s", reason)
		}
	})

	t.Run("Given an expiry today before the cutoff Then it passes", func(t *testing.T) {
		raw := valid()
		raw.ExpiryDate = "2024-05-10"
		at2059 := time.Date(2024, 5, 10, 20, 59, 0, 0, time.UTC)
		if _, reason := ValidateExtraction(raw, at2059); reason != "" {
			t.Errorf("got %s", reason)
		}
	})

	t.Run("Given an expiry today at or past the cutoff Then EXPIRED", func(t *testing.T) {
		raw := valid()
		raw.ExpiryDate = "2024-05-10"
		for _, at := range []time.Time{
			time.Date(2024, 5, 10, 21, 0, 0, 0, time.UTC),
			time.Date(2024, 5, 10, 21, 30, 0, 0, time.UTC),
			time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC),
		} {
			if _, reason := ValidateExtraction(raw, at); reason != REJECT_EXPIRED {
				t.Errorf("at %v: got %s", at, reason)
			}
		}
	})

	t.Run("Given an expiry tomorrow past the cutoff hour Then it still passes", func(t *testing.T) {
		raw := valid()
		raw.ExpiryDate = "2024-05-11"
		at2130 := time.Date(2024, 5, 10, 21, 30, 0, 0, time.UTC)
		if _, reason := ValidateExtraction(raw, at2130); reason != "" {
			t.Errorf("got %s", reason)
		}
	})

	t.Run("Given a blank barcode Then COULD_NOT_READ_BARCODE", func(t *testing.T) {
		for _, barcode := range []string{"", "   "} {
			raw := valid()
			raw.Barcode = barcode
			if _, reason := ValidateExtraction(raw, now); reason != REJECT_COULD_NOT_READ_BARCODE {
				t.Errorf("barcode %q: got %s", barcode, reason)
			}
		}
	})

	t.Run("Given a padded barcode Then it is trimmed", func(t *testing.T) {
		raw := valid()
		raw.Barcode = "  B1  "
		fields, reason := ValidateExtraction(raw, now)
		if reason != "" {
			t.Fatalf("got %s", reason)
		}
		if fields.Barcode != "B1" {
			t.Errorf("barcode = %q", fields.Barcode)
		}
	})

	t.Run("Given alternate date layouts Then they parse", func(t *testing.T) {
		raw := valid()
		raw.ValidFrom = "09-05-2024"
		raw.ExpiryDate = "24/05/2024"
		fields, reason := ValidateExtraction(raw, now)
		if reason != "" {
			t.Fatalf("got %s", reason)
		}
		if !fields.ValidFrom.Equal(time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("valid from = %v", fields.ValidFrom)
		}
		if !fields.ExpiresAt.Equal(time.Date(2024, 5, 24, 23, 59, 59, 999000000, time.UTC)) {
			t.Errorf("expires at = %v", fields.ExpiresAt)
		}
	})

	t.Run("Given every rejection reason Then a message template exists", func(t *testing.T) {
		for _, reason := range []string{
			REJECT_INVALID_TYPE,
			REJECT_COULD_NOT_READ_VALID_FROM,
			REJECT_COULD_NOT_READ_EXPIRY_DATE,
			REJECT_EXPIRED,
			REJECT_COULD_NOT_READ_BARCODE,
			REJECT_DUPLICATE_BARCODE,
		} {
			if RejectionMessages[reason] == "" {
				t.Errorf("no message for %s", reason)
			}
		}
	})
}
