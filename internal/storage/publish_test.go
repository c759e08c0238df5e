package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/models"
)

type recordingPublisher struct {
	keys   []string
	bodies [][]byte
	failAt int
	closed bool
}

func (p *recordingPublisher) Publish(_ context.Context, key string, body []byte) error {
	if p.failAt > 0 && len(p.keys)+1 == p.failAt {
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, key)
	p.bodies = append(p.bodies, body)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func TestPublishSink_OneMessagePerUser(t *testing.T) {
	pub := &recordingPublisher{}
	sink := NewPublishSink("kafka", pub, logging.NewNopLogger())
	assert.Equal(t, "kafka", sink.Name())

	users := []models.EnrichedUser{
		{ID: 7, FirstName: "A", Country: "Germany", FavoriteCategory: "mobile"},
		{ID: 9, FirstName: "B", Country: models.Unknown, FavoriteCategory: models.Unknown},
	}
	require.NoError(t, sink.Write(context.Background(), users))
	require.NoError(t, sink.Write(context.Background(), nil))

	assert.Equal(t, []string{"7", "9"}, pub.keys)
	var decoded models.EnrichedUser
	require.NoError(t, json.Unmarshal(pub.bodies[1], &decoded))
	assert.Equal(t, users[1], decoded)

	require.NoError(t, sink.Close())
	assert.True(t, pub.closed)
}

func TestPublishSink_StopsAtFirstFailure(t *testing.T) {
	pub := &recordingPublisher{failAt: 2}
	sink := NewPublishSink("sqs", pub, logging.NewNopLogger())

	err := sink.Write(context.Background(), []models.EnrichedUser{{ID: 1}, {ID: 2}, {ID: 3}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish user 2")
	assert.Equal(t, []string{"1"}, pub.keys)
}

func TestPublishSink_HonoursCancellation(t *testing.T) {
	pub := &recordingPublisher{}
	sink := NewPublishSink("pubsub", pub, logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.Write(ctx, []models.EnrichedUser{{ID: 1}}), context.Canceled)
	assert.Empty(t, pub.keys)
}
