package services

import (
	"strings"
	"testing"
)

func TestBanMessage(t *testing.T) {
	t.Run("Given no appeal contact Then the plain notice comes back", func(t *testing.T) {
		if got := BanMessage(""); got != MessageBanned {
			t.Errorf("got %q", got)
		}
	})

	t.Run("Given an appeal contact Then the notice names it", func(t *testing.T) {
		got := BanMessage("@exchange_support")
		if !strings.Contains(got, MessageBanned) {
			t.Errorf("notice dropped the suspension text: %q", got)
		}
		if !strings.Contains(got, "@exchange_support") {
			t.Errorf("notice dropped the contact: %q", got)
		}
	})
}
