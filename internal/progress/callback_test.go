package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCall_NilCallback(t *testing.T) {
	// Should not panic when callback is nil
	assert.NotPanics(t, func() {
		Call(nil, 5, 10, "test message")
	})
}

func TestCall_InvokesCallback(t *testing.T) {
	var capturedCurrent, capturedTotal int
	var capturedMessage string

	cb := func(current, total int, message string) {
		capturedCurrent = current
		capturedTotal = total
		capturedMessage = message
	}

	Call(cb, 5, 10, "cv-alpha")

	assert.Equal(t, 5, capturedCurrent)
	assert.Equal(t, 10, capturedTotal)
	assert.Equal(t, "cv-alpha", capturedMessage)
}

func TestPrefixed(t *testing.T) {
	assert.Nil(t, Prefixed(nil, "alpha=0.1 "))

	var messages []string
	cb := Prefixed(func(current, total int, message string) {
		messages = append(messages, message)
	}, "alpha=0.1 ")

	Call(cb, 1, 2, "k=1")
	Call(cb, 2, 2, "k=2")

	assert.Equal(t, []string{"alpha=0.1 k=1", "alpha=0.1 k=2"}, messages)
}
