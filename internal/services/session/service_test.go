package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollinit/rollinit/internal/errors"
	"github.com/rollinit/rollinit/internal/joincode"
	"github.com/rollinit/rollinit/internal/repositories/sessions"
)

// stubCodeGenerator returns a fixed sequence of codes.
type stubCodeGenerator struct {
	codes []string
	idx   int
}

func (g *stubCodeGenerator) New() string {
	if g.idx >= len(g.codes) {
		return g.codes[len(g.codes)-1]
	}
	code := g.codes[g.idx]
	g.idx++
	return code
}

func newService(gen joincode.Generator) Service {
	return NewService(&ServiceConfig{
		Repository:    sessions.NewInMemoryRepository(),
		CodeGenerator: gen,
	})
}

func TestService_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh session gets a code and a DM token", func(t *testing.T) {
		svc := newService(joincode.NewSeededWordGenerator(1))
		sess, err := svc.CreateSession(ctx)
		require.NoError(t, err)
		assert.Len(t, sess.JoinCode, joincode.CodeLength)
		assert.NotEmpty(t, sess.DMToken)
		assert.NotEmpty(t, sess.ID)
		assert.False(t, sess.IsLocked)
	})

	t.Run("collisions are retried until a free code appears", func(t *testing.T) {
		svc := newService(&stubCodeGenerator{codes: []string{"GOBLIN", "GOBLIN", "DRAGON"}})

		first, err := svc.CreateSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, "GOBLIN", first.JoinCode)

		second, err := svc.CreateSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, "DRAGON", second.JoinCode)
	})

	t.Run("exhausted retries surface as unavailable", func(t *testing.T) {
		svc := newService(&stubCodeGenerator{codes: []string{"GOBLIN"}})
		_, err := svc.CreateSession(ctx)
		require.NoError(t, err)

		_, err = svc.CreateSession(ctx)
		assert.True(t, errors.IsUnavailable(err))
	})
}

func TestService_GetByJoinCode(t *testing.T) {
	ctx := context.Background()
	svc := newService(&stubCodeGenerator{codes: []string{"GOBLIN"}})
	_, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	t.Run("codes are case-insensitive", func(t *testing.T) {
		sess, err := svc.GetByJoinCode(ctx, "goblin")
		require.NoError(t, err)
		assert.Equal(t, "GOBLIN", sess.JoinCode)
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		_, err := svc.GetByJoinCode(ctx, "NOSUCH")
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestService_DMActions(t *testing.T) {
	ctx := context.Background()
	svc := newService(&stubCodeGenerator{codes: []string{"GOBLIN", "DRAGON"}})
	created, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	t.Run("wrong token is rejected", func(t *testing.T) {
		_, err := svc.ToggleLock(ctx, created.JoinCode, "not-the-token")
		assert.True(t, errors.IsPermissionDenied(err))
	})

	t.Run("toggle lock flips", func(t *testing.T) {
		sess, err := svc.ToggleLock(ctx, created.JoinCode, created.DMToken)
		require.NoError(t, err)
		assert.True(t, sess.IsLocked)

		sess, err = svc.ToggleLock(ctx, created.JoinCode, created.DMToken)
		require.NoError(t, err)
		assert.False(t, sess.IsLocked)
	})

	t.Run("update settings", func(t *testing.T) {
		password := "hunter2"
		physical := true
		sess, err := svc.UpdateSettings(ctx, created.JoinCode, created.DMToken, &UpdateSettingsInput{
			Password:     &password,
			PhysicalDice: &physical,
		})
		require.NoError(t, err)
		assert.Equal(t, "hunter2", sess.Password)
		assert.True(t, sess.PhysicalDice)
	})

	t.Run("validate password", func(t *testing.T) {
		valid, err := svc.ValidatePassword(ctx, created.JoinCode, "hunter2")
		require.NoError(t, err)
		assert.True(t, valid)

		valid, err = svc.ValidatePassword(ctx, created.JoinCode, "wrong")
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("regenerate swaps the code and retires the old one", func(t *testing.T) {
		sess, oldCode, err := svc.RegenerateCode(ctx, created.JoinCode, created.DMToken)
		require.NoError(t, err)
		assert.Equal(t, "GOBLIN", oldCode)
		assert.Equal(t, "DRAGON", sess.JoinCode)

		_, err = svc.GetByJoinCode(ctx, "GOBLIN")
		assert.True(t, errors.IsNotFound(err))

		found, err := svc.GetByJoinCode(ctx, "DRAGON")
		require.NoError(t, err)
		assert.Equal(t, sess.ID, found.ID)
	})
}
