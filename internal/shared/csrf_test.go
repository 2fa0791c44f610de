package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewCSRFManager("csrf-secret")
	sess := &Session{ID: "sess-1"}

	token, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	again, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)
	assert.NoError(t, m.VerifyToken(ctx, sess, token))

	rotated, err := m.RotateToken(ctx, sess)
	require.NoError(t, err)
	assert.NotEqual(t, token, rotated)
	assert.ErrorIs(t, m.VerifyToken(ctx, sess, token), ErrCSRFTokenMismatch)
	assert.NoError(t, m.VerifyToken(ctx, sess, rotated))
}

func TestCSRFVerifyWithoutToken(t *testing.T) {
	ctx := context.Background()
	m := NewCSRFManager("csrf-secret")
	assert.ErrorIs(t, m.VerifyToken(ctx, nil, "x"), ErrCSRFTokenMissing)
	assert.ErrorIs(t, m.VerifyToken(ctx, &Session{ID: "s"}, ""), ErrCSRFTokenMissing)

	_, err := m.EnsureToken(ctx, nil)
	assert.ErrorIs(t, err, ErrSessionMissing)
}

func TestSessionUserID(t *testing.T) {
	_, ok := SessionUserID(context.Background())
	assert.False(t, ok)

	sess := &Session{ID: "s"}
	ctx := ContextWithSession(context.Background(), sess)
	_, ok = SessionUserID(ctx)
	assert.False(t, ok)

	sess.SetUser("  user-1 ")
	id, ok := SessionUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)
}
