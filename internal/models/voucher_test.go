package models

import (
	"testing"
	"time"
)

func TestCanTransitionVoucher(t *testing.T) {
	allowed := [][2]string{
		{VoucherStatusProcessing, VoucherStatusAvailable},
		{VoucherStatusAvailable, VoucherStatusClaimed},
		{VoucherStatusAvailable, VoucherStatusExpired},
		{VoucherStatusClaimed, VoucherStatusReported},
		{VoucherStatusClaimed, VoucherStatusAvailable},
	}
	for _, edge := range allowed {
		if !CanTransitionVoucher(edge[0], edge[1]) {
			t.Errorf("expected %s -> %s to be allowed", edge[0], edge[1])
		}
	}

	denied := [][2]string{
		{VoucherStatusProcessing, VoucherStatusClaimed},
		{VoucherStatusProcessing, VoucherStatusExpired},
		{VoucherStatusAvailable, VoucherStatusReported},
		{VoucherStatusReported, VoucherStatusAvailable},
		{VoucherStatusReported, VoucherStatusClaimed},
		{VoucherStatusReported, VoucherStatusExpired},
		{VoucherStatusExpired, VoucherStatusAvailable},
		{VoucherStatusExpired, VoucherStatusClaimed},
		{VoucherStatusClaimed, VoucherStatusExpired},
	}
	for _, edge := range denied {
		if CanTransitionVoucher(edge[0], edge[1]) {
			t.Errorf("expected %s -> %s to be denied", edge[0], edge[1])
		}
	}
}

func TestVoucherClaimable(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	t.Run("Given an available voucher inside its window Then it is claimable", func(t *testing.T) {
		v := &Voucher{Status: VoucherStatusAvailable, ValidFrom: &yesterday, ExpiresAt: tomorrow}
		if !v.Claimable(now) {
			t.Error("expected claimable")
		}
	})

	t.Run("Given a voucher with no valid-from Then the window check is skipped", func(t *testing.T) {
		v := &Voucher{Status: VoucherStatusAvailable, ExpiresAt: tomorrow}
		if !v.Claimable(now) {
			t.Error("expected claimable")
		}
	})

	t.Run("Given a voucher not yet valid Then it is not claimable", func(t *testing.T) {
		v := &Voucher{Status: VoucherStatusAvailable, ValidFrom: &tomorrow, ExpiresAt: tomorrow.AddDate(0, 0, 7)}
		if v.Claimable(now) {
			t.Error("expected not claimable")
		}
	})

	t.Run("Given an expired-by-time voucher Then it is not claimable", func(t *testing.T) {
		v := &Voucher{Status: VoucherStatusAvailable, ExpiresAt: yesterday}
		if v.Claimable(now) {
			t.Error("expected not claimable")
		}
	})

	t.Run("Given a claimed voucher Then it is not claimable", func(t *testing.T) {
		v := &Voucher{Status: VoucherStatusClaimed, ExpiresAt: tomorrow}
		if v.Claimable(now) {
			t.Error("expected not claimable")
		}
	})
}
