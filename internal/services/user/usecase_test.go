package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nianevitch/uptime-checker/internal/domain/monitor"
	"github.com/nianevitch/uptime-checker/internal/domain/user"
	"github.com/nianevitch/uptime-checker/internal/repository/memory"
)

func TestRegisterNormalizesAndHashes(t *testing.T) {
	uc := New(memory.New().Users())

	acc, err := uc.Register(context.Background(), "  Owner@Example.COM ", "s3cretpass", false)
	require.NoError(t, err)

	assert.Equal(t, "owner@example.com", acc.Email)
	assert.NotEqual(t, "s3cretpass", acc.PasswordHash)
	assert.True(t, acc.VerifyPassword("s3cretpass"))
	assert.False(t, acc.VerifyPassword("wrong"))
}

func TestRegisterValidation(t *testing.T) {
	uc := New(memory.New().Users())

	_, err := uc.Register(context.Background(), "not-an-email", "s3cretpass", false)
	assert.ErrorIs(t, err, monitor.ErrValidation)

	_, err = uc.Register(context.Background(), "owner@example.com", "short", false)
	assert.ErrorIs(t, err, monitor.ErrValidation)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	uc := New(memory.New().Users())

	_, err := uc.Register(context.Background(), "owner@example.com", "s3cretpass", false)
	require.NoError(t, err)

	_, err = uc.Register(context.Background(), "OWNER@example.com", "s3cretpass", true)
	assert.ErrorIs(t, err, user.ErrConflict)
}
