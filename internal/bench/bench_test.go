package bench

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kv-store/internal/client"
	"kv-store/internal/config"
	"kv-store/internal/server"
)

type memTarget struct {
	mu     sync.Mutex
	data   map[string]string
	gets   atomic.Int64
	sets   atomic.Int64
	failOn string
}

func newMemTarget() *memTarget {
	return &memTarget{data: map[string]string{}}
}

func (m *memTarget) Addr() string { return "127.0.0.1:4000" }

func (m *memTarget) Get(_ context.Context, key string) (string, bool, error) {
	m.gets.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memTarget) Set(_ context.Context, key, value string, _ bool) (string, error) {
	m.sets.Add(1)
	if m.failOn == "set" {
		return "", errors.New("write rejected")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return value, nil
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 0.5, config.WriteRatio)
	assert.Equal(t, 10000, config.KeyRange)
	assert.Equal(t, 10, config.NumWorkers)
}

func TestNewGenerator(t *testing.T) {
	g := New([]Target{newMemTarget()}, DefaultConfig())
	assert.False(t, g.IsRunning())
}

func TestGeneratorStartStop(t *testing.T) {
	target := newMemTarget()
	g := New([]Target{target}, DefaultConfig())

	g.Start(context.Background())
	assert.True(t, g.IsRunning())

	// Give it time to run some requests
	time.Sleep(50 * time.Millisecond)

	g.Stop()
	assert.False(t, g.IsRunning())
	assert.NotZero(t, g.Metrics().TotalRequests())
}

func TestRunRequestsExactCount(t *testing.T) {
	target := newMemTarget()
	g := New([]Target{target}, DefaultConfig())

	snap := g.RunRequests(context.Background(), 500)
	require.NotNil(t, snap)
	assert.Equal(t, uint64(500), snap.TotalRequests)
	assert.Equal(t, int64(500), target.gets.Load()+target.sets.Load())
	assert.Zero(t, snap.FailedRequests)
}

func TestWriteRatio(t *testing.T) {
	readOnly := newMemTarget()
	config := DefaultConfig()
	config.WriteRatio = 0
	New([]Target{readOnly}, config).RunRequests(context.Background(), 100)
	assert.Zero(t, readOnly.sets.Load())

	writeOnly := newMemTarget()
	config.WriteRatio = 1
	New([]Target{writeOnly}, config).RunRequests(context.Background(), 100)
	assert.Zero(t, writeOnly.gets.Load())
}

func TestFailuresRecorded(t *testing.T) {
	target := newMemTarget()
	target.failOn = "set"

	config := DefaultConfig()
	config.WriteRatio = 1
	snap := New([]Target{target}, config).RunRequests(context.Background(), 50)

	assert.Equal(t, uint64(50), snap.FailedRequests)
	assert.Equal(t, 1.0, snap.ErrorRate)
}

func TestKeysAndValuesAreTokens(t *testing.T) {
	target := newMemTarget()
	config := DefaultConfig()
	config.WriteRatio = 1
	config.KeyRange = 20
	New([]Target{target}, config).RunRequests(context.Background(), 200)

	token := regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	target.mu.Lock()
	defer target.mu.Unlock()
	require.NotEmpty(t, target.data)
	for k, v := range target.data {
		assert.True(t, token.MatchString(k), k)
		assert.True(t, token.MatchString(v), v)
		assert.Len(t, v, config.ValueSize*2)
	}
}

func TestRunFor(t *testing.T) {
	g := New([]Target{newMemTarget()}, DefaultConfig())

	snap := g.RunFor(context.Background(), 50*time.Millisecond)
	require.NotNil(t, snap)
	assert.NotZero(t, snap.TotalRequests)
	assert.False(t, g.IsRunning())
}

func TestNoTargets(t *testing.T) {
	snap := New(nil, DefaultConfig()).RunRequests(context.Background(), 10)
	assert.Zero(t, snap.TotalRequests)
}

func TestAgainstRunningNode(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	s, err := server.New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	c, err := client.Dial(s.Addr(), time.Second)
	require.NoError(t, err)
	defer c.Close()

	bc := DefaultConfig()
	bc.KeyRange = 50
	snap := New([]Target{c}, bc).RunRequests(context.Background(), 200)

	assert.Equal(t, uint64(200), snap.TotalRequests)
	assert.Zero(t, snap.FailedRequests)
	assert.NotZero(t, s.Node().Size())
}
