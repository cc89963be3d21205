package redis_store

import (
	"strconv"
	"testing"
)

func TestInboundEventKeys(t *testing.T) {
	t.Run("Given the same message Then the key is stable", func(t *testing.T) {
		if dbKeyInboundEvent("1234", 7) != dbKeyInboundEvent("1234", 7) {
			t.Error("redelivery must hit the same key")
		}
	})

	t.Run("Given different messages Then the keys differ", func(t *testing.T) {
		a := dbKeyInboundEvent("1234", 7)
		if b := dbKeyInboundEvent("1234", 8); b == a {
			t.Errorf("distinct message ids collide on %q", a)
		}
		if b := dbKeyInboundEvent("-5678", 7); b == a {
			t.Errorf("distinct chats collide on %q", a)
		}
	})

	t.Run("Given a callback Then its key stays out of the message space", func(t *testing.T) {
		key := dbKeyInboundCallback("7")
		for _, chat := range []int64{7, -7, 1234} {
			if dbKeyInboundEvent(strconv.FormatInt(chat, 10), 7) == key {
				t.Errorf("callback key %q collides with chat %d", key, chat)
			}
		}
	})
}
