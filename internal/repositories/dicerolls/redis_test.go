package dicerolls

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollinit/rollinit/internal/domain/session"
)

func testRoll(id string) *session.DiceRoll {
	return &session.DiceRoll{
		ID:         id,
		SessionID:  "sess-1",
		Notation:   "2d6+3",
		Rolls:      []int{4, 6},
		Modifier:   3,
		Total:      13,
		RollerName: "Thorin",
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRedisRepository_Create(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	repo := NewRedis(client)

	roll := testRoll("roll-1")
	data, err := json.Marshal(roll)
	require.NoError(t, err)

	mock.ExpectTxPipeline()
	mock.ExpectLPush("session:sess-1:dicerolls", data).SetVal(1)
	mock.ExpectLTrim("session:sess-1:dicerolls", 0, retainCount-1).SetVal("OK")
	mock.ExpectTxPipelineExec()

	require.NoError(t, repo.Create(ctx, roll))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRepository_ListRecent(t *testing.T) {
	ctx := context.Background()

	t.Run("returns newest-first entries", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		repo := NewRedis(client)

		newer, err := json.Marshal(testRoll("roll-2"))
		require.NoError(t, err)
		older, err := json.Marshal(testRoll("roll-1"))
		require.NoError(t, err)

		mock.ExpectLRange("session:sess-1:dicerolls", 0, 9).SetVal([]string{string(newer), string(older)})

		rolls, err := repo.ListRecent(ctx, "sess-1", 10)
		require.NoError(t, err)
		require.Len(t, rolls, 2)
		assert.Equal(t, "roll-2", rolls[0].ID)
		assert.Equal(t, "roll-1", rolls[1].ID)
	})

	t.Run("empty log yields an empty slice", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		repo := NewRedis(client)

		mock.ExpectLRange("session:sess-1:dicerolls", 0, 49).SetVal(nil)

		rolls, err := repo.ListRecent(ctx, "sess-1", 50)
		require.NoError(t, err)
		assert.Empty(t, rolls)
	})
}
