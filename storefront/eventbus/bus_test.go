package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishReachesSubscribersInOrder(t *testing.T) {
	bus := New()
	var got []string

	bus.Subscribe("cart-changed", func(event string, payload any) {
		got = append(got, "first:"+payload.(string))
	})
	bus.Subscribe("cart-changed", func(event string, payload any) {
		got = append(got, "second:"+payload.(string))
	})
	bus.Subscribe("other", func(event string, payload any) {
		got = append(got, "other")
	})

	bus.Publish("cart-changed", "x")

	assert.Equal(t, []string{"first:x", "second:x"}, got)
}

func TestUnsubscribe(t *testing.T) {
	bus := New()
	calls := 0
	unsubscribe := bus.Subscribe("cart-changed", func(string, any) { calls++ })

	bus.Publish("cart-changed", nil)
	unsubscribe()
	unsubscribe()
	bus.Publish("cart-changed", nil)

	assert.Equal(t, 1, calls)
}
