package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmailService_NoHostIsNoop(t *testing.T) {
	svc := NewEmailService(SMTPConfig{})
	assert.IsType(t, noopEmail{}, svc)
	assert.NoError(t, svc.Send("a@b.c", "s", "b"))
}

func TestAsyncEmail_DeliversInBackground(t *testing.T) {
	inner := &recordingEmail{}
	async, err := NewAsyncEmailService(inner, 2)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, async.Send("bea@example.com", "Order confirmation", "thanks"))
	}
	assert.Eventually(t, func() bool {
		inner.mu.Lock()
		defer inner.mu.Unlock()
		return len(inner.sent) == 2
	}, 2*time.Second, 10*time.Millisecond)

	async.Close()
	assert.Error(t, async.Send("late@example.com", "s", "b"))
}
