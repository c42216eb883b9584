package commands

import (
	"testing"
	"time"

	"github.com/appetiteclub/kds/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestHistoryFilter(t *testing.T) {
	cfg := config.NewConfig()

	filter, err := historyFilter(cfg)
	require.NoError(t, err)
	assert.Empty(t, filter)

	cfg.Set("history.before", "2024-11-01T00:00:00Z")
	filter, err = historyFilter(cfg)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"closed_at": bson.M{"$lt": time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)}}, filter)

	cfg.Set("history.before", "last week")
	_, err = historyFilter(cfg)
	assert.Error(t, err)
}
