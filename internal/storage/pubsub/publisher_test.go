package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cart-enricher/internal/common/errors"
	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/models"
	"cart-enricher/internal/storage"
)

// startEmulator runs an in-process Pub/Sub server and points clients at it
func startEmulator(t *testing.T, topics ...string) *pstest.Server {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { srv.Close() })
	t.Setenv("PUBSUB_EMULATOR_HOST", srv.Addr)

	ctx := context.Background()
	client, err := pubsub.NewClient(ctx, "cart-enricher-test")
	require.NoError(t, err)
	defer client.Close()

	for _, id := range topics {
		_, err := client.CreateTopic(ctx, id)
		require.NoError(t, err)
	}
	return srv
}

func TestSink_PublishesToTopic(t *testing.T) {
	srv := startEmulator(t, "enriched-users")

	sink, err := storage.Create(&Config{ProjectID: "cart-enricher-test", TopicID: "enriched-users"}, logging.NewNopLogger())
	require.NoError(t, err)

	users := []models.EnrichedUser{
		{ID: 7, FirstName: "A", Country: "Germany", FavoriteCategory: "mobile"},
		{ID: 8, FirstName: "B", Country: models.Unknown, FavoriteCategory: models.Unknown},
	}
	require.NoError(t, sink.Write(context.Background(), users))
	require.NoError(t, sink.Close())

	messages := srv.Messages()
	require.Len(t, messages, 2)

	byUser := map[string][]byte{}
	for _, m := range messages {
		byUser[m.Attributes["user_id"]] = m.Data
	}
	var decoded models.EnrichedUser
	require.NoError(t, json.Unmarshal(byUser["8"], &decoded))
	assert.Equal(t, users[1], decoded)
}

func TestNewPublisher_MissingTopic(t *testing.T) {
	startEmulator(t)

	_, err := NewPublisher(context.Background(), &Config{ProjectID: "cart-enricher-test", TopicID: "absent"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, (&Config{TopicID: "t"}).Validate())
	assert.Error(t, (&Config{ProjectID: "p"}).Validate())
	assert.NoError(t, (&Config{ProjectID: "p", TopicID: "t"}).Validate())
	assert.Equal(t, "pubsub", (&Config{}).GetType())
}
