package services

import (
	"vouchswap/internal/models"
)

// ReporterVerdict evaluates the reporter ban heuristic over the reporter's
// recent-claims window, newest first, before the in-flight report is
// persisted. The in-flight report counts whenever its voucher sits in the
// window, so the triggering report trips the ban without ever being stored.
func ReporterVerdict(window []*models.ClaimRecord, currentVoucherID int64) bool {
	if len(window) > REPORTER_WINDOW {
		window = window[:REPORTER_WINDOW]
	}

	reported := 0
	for _, record := range window {
		if record.Reported || record.VoucherID == currentVoucherID {
			reported++
		}
	}

	return reported >= REPORTER_TRIP
}

// UploaderVerdict evaluates the uploader ban heuristic. Window rows carry
// only reports by non-banned reporters. Past highVolumeAt lifetime uploads
// the window widens and the trip rises, so busy uploaders aren't banned on
// the same absolute count as casual ones.
func UploaderVerdict(window []*models.UploadRecord, lifetimeUploads, highVolumeAt int) bool {
	size, trip := UPLOADER_WINDOW, UPLOADER_TRIP
	if lifetimeUploads >= highVolumeAt {
		size, trip = UPLOADER_WINDOW_HIGH_VOLUME, UPLOADER_TRIP_HIGH_VOLUME
	}

	if len(window) > size {
		window = window[:size]
	}

	reported := 0
	for _, record := range window {
		if record.Reported {
			reported++
		}
	}

	return reported >= trip
}
