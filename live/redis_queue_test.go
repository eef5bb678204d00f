package live

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Dosada05/scorekeeper/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeList struct {
	key    string
	values []interface{}
	err    error
}

func (f *fakeList) RPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.key = key
	f.values = append(f.values, values...)
	return redis.NewIntResult(int64(len(f.values)), f.err)
}

type recorder struct {
	events []models.SessionEvent
	err    error
}

func (r *recorder) Notify(_ context.Context, event models.SessionEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func TestRedisQueuePushesJSON(t *testing.T) {
	list := &fakeList{}
	q := newRedisQueue(list, "")
	event := models.SessionEvent{Type: models.EventSessionCreated, SessionID: uuid.New()}

	require.NoError(t, q.Notify(context.Background(), event))
	assert.Equal(t, DefaultQueueName, list.key)
	require.Len(t, list.values, 1)

	var got models.SessionEvent
	require.NoError(t, json.Unmarshal(list.values[0].([]byte), &got))
	assert.Equal(t, event.SessionID, got.SessionID)
	assert.Equal(t, models.EventSessionCreated, got.Type)
}

func TestRedisQueueError(t *testing.T) {
	q := newRedisQueue(&fakeList{err: errors.New("connection refused")}, "events")

	err := q.Notify(context.Background(), models.SessionEvent{Type: models.EventSessionEnded})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'events'")
}

func TestFanoutDeliversToAll(t *testing.T) {
	boom := errors.New("boom")
	first := &recorder{err: boom}
	second := &recorder{}
	fan := Fanout{first, nil, second}

	err := fan.Notify(context.Background(), models.SessionEvent{Type: models.EventPlayersAdded})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1, "a failing notifier does not stop the others")

	assert.NoError(t, Fanout{}.Notify(context.Background(), models.SessionEvent{}))
}
