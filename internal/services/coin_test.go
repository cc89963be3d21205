package services

import (
	"testing"
)

func TestApplyCredit(t *testing.T) {
	t.Run("Given headroom Then the full amount applies", func(t *testing.T) {
		balance, applied := ApplyCredit(40, 15)
		if balance != 55 || applied != 15 {
			t.Errorf("got balance %d applied %d", balance, applied)
		}
	})

	t.Run("Given a credit over the cap Then the applied delta shrinks", func(t *testing.T) {
		balance, applied := ApplyCredit(95, 15)
		if balance != MAX_COINS {
			t.Errorf("balance = %d", balance)
		}
		if applied != 5 {
			t.Errorf("applied = %d, ledger must record the applied delta", applied)
		}
	})

	t.Run("Given a balance already at the cap Then nothing applies", func(t *testing.T) {
		balance, applied := ApplyCredit(MAX_COINS, 15)
		if balance != MAX_COINS || applied != 0 {
			t.Errorf("got balance %d applied %d", balance, applied)
		}
	})

	t.Run("Given a negative amount Then it passes through as a debit", func(t *testing.T) {
		balance, applied := ApplyCredit(50, -10)
		if balance != 40 || applied != -10 {
			t.Errorf("got balance %d applied %d", balance, applied)
		}
	})
}

func TestDenominationTables(t *testing.T) {
	wantReward := map[int]int{5: 15, 10: 10, 20: 5}
	for denomination, want := range wantReward {
		reward, ok := RewardForDenomination(denomination)
		if !ok || reward != want {
			t.Errorf("reward[%d] = %d ok=%v, want %d", denomination, reward, ok, want)
		}

		cost, ok := CostForDenomination(denomination)
		if !ok || cost != reward {
			t.Errorf("cost[%d] = %d ok=%v, want reward parity", denomination, cost, ok)
		}
	}

	if _, ok := RewardForDenomination(0); ok {
		t.Error("denomination 0 must not pay a reward")
	}
	if _, ok := CostForDenomination(50); ok {
		t.Error("unknown denomination must not price a claim")
	}
}
