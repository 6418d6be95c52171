package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"barber-growth-backend/config"
)

type roster struct {
	Names []string `json:"names"`
}

func TestMemory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("test:", time.Minute)

	var got roster
	found, err := c.Get(ctx, "staff", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "staff", roster{Names: []string{"Rafa", "Leo"}}))
	found, err = c.Get(ctx, "staff", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"Rafa", "Leo"}, got.Names)

	require.NoError(t, c.Invalidate(ctx, "staff", "missing"))
	found, err = c.Get(ctx, "staff", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemory_Expires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("", 20*time.Millisecond)
	require.NoError(t, c.Set(ctx, "k", 1))

	time.Sleep(50 * time.Millisecond)

	var v int
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var c Cache = Nop{}
	require.NoError(t, c.Set(ctx, "k", 1))
	var v int
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNew(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()

	c, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	cfg.Cache.Backend = "none"
	c, err = New(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, Nop{}, c)

	cfg.Cache.Backend = "memcached"
	_, err = New(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestNewRedis_Unreachable(t *testing.T) {
	_, err := NewRedis(&config.RedisConfig{Addr: "127.0.0.1:1"}, "", time.Minute, zap.NewNop())
	assert.Error(t, err)
}
