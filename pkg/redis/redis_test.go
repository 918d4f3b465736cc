package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func TestSetJSON(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := Wrap(db)

	mock.ExpectSet("k", `{"name":"rank"}`, time.Minute).SetVal("OK")

	require.NoError(t, client.SetJSON(context.Background(), "k", payload{Name: "rank"}, time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJSON(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := Wrap(db)
	ctx := context.Background()

	mock.ExpectGet("hit").SetVal(`{"name":"rank"}`)
	mock.ExpectGet("miss").RedisNil()
	mock.ExpectGet("broken").SetErr(errors.New("connection refused"))

	var got payload
	require.NoError(t, client.GetJSON(ctx, "hit", &got))
	assert.Equal(t, "rank", got.Name)

	assert.ErrorIs(t, client.GetJSON(ctx, "miss", &got), ErrCacheMiss)

	err := client.GetJSON(ctx, "broken", &got)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectDel("a", "b").SetVal(2)

	assert.NoError(t, Wrap(db).Delete(context.Background(), "a", "b"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
