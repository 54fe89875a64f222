package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLocks_SerializesPerSession(t *testing.T) {
	l := newSessionLocks()

	release, err := l.acquire(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.acquire(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.acquire(context.Background(), "b")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.acquire(context.Background(), "a")
	require.NoError(t, err)
	again()

	assert.Equal(t, 0, l.size())
}
