package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/auth"
	"quill/db"
)

func TestGateCheck(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		token    string
		err      error
	}{
		{name: "exact match", expected: "s3cret", token: "s3cret"},
		{name: "wrong token", expected: "s3cret", token: "secret", err: auth.ErrInvalidToken},
		{name: "prefix only", expected: "s3cret", token: "s3c", err: auth.ErrInvalidToken},
		{name: "empty token", expected: "s3cret", token: "", err: auth.ErrInvalidToken},
		{name: "case differs", expected: "s3cret", token: "S3CRET", err: auth.ErrInvalidToken},
		{name: "not configured", expected: "", token: "", err: auth.ErrNotConfigured},
		{name: "not configured with token", expected: "", token: "anything", err: auth.ErrNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.NewGate(tt.expected).Check(tt.token)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestKeeperLoginLogout(t *testing.T) {
	ctx := context.Background()
	slots := db.NewMemorySlots()
	keeper := auth.NewKeeper(slots, auth.NewGate("s3cret"))

	assert.ErrorIs(t, keeper.Authorized(ctx), auth.ErrInvalidToken)

	assert.ErrorIs(t, keeper.Login(ctx, "wrong"), auth.ErrInvalidToken)
	_, ok := keeper.Remembered(ctx)
	assert.False(t, ok, "rejected tokens are not saved")

	require.NoError(t, keeper.Login(ctx, "s3cret"))
	token, ok := keeper.Remembered(ctx)
	require.True(t, ok)
	assert.Equal(t, "s3cret", token)
	assert.NoError(t, keeper.Authorized(ctx))

	require.NoError(t, keeper.Logout(ctx))
	assert.ErrorIs(t, keeper.Authorized(ctx), auth.ErrInvalidToken)
}

func TestKeeperTokenRotation(t *testing.T) {
	ctx := context.Background()
	slots := db.NewMemorySlots()

	require.NoError(t, auth.NewKeeper(slots, auth.NewGate("old")).Login(ctx, "old"))

	rotated := auth.NewKeeper(slots, auth.NewGate("new"))
	assert.ErrorIs(t, rotated.Authorized(ctx), auth.ErrInvalidToken)
}

func TestKeeperSaveFailure(t *testing.T) {
	ctx := context.Background()
	slots := db.NewMemorySlots()
	slots.FailWrites(errors.New("storage disabled"))

	err := auth.NewKeeper(slots, auth.NewGate("s3cret")).Login(ctx, "s3cret")
	assert.Error(t, err)
}

func TestKeeperNotConfigured(t *testing.T) {
	keeper := auth.NewKeeper(db.NewMemorySlots(), auth.NewGate(""))
	assert.ErrorIs(t, keeper.Authorized(context.Background()), auth.ErrNotConfigured)
}
