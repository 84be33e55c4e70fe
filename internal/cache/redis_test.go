package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityfix-service/internal/config"
)

func TestNewRedisDisabledWithoutAddr(t *testing.T) {
	client, err := NewRedis(config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRedisFailsOnUnreachableServer(t *testing.T) {
	client, err := NewRedis(config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
	assert.Nil(t, client)
}
