package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mineradorx/relay/internal/logger"
)

func createTestLogger() *logger.StyledLogger {
	return logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type journal struct {
	events []string
	mu     sync.Mutex
}

func (j *journal) add(e string) {
	j.mu.Lock()
	j.events = append(j.events, e)
	j.mu.Unlock()
}

type mockService struct {
	startErr error
	stopErr  error
	log      *journal
	name     string
	deps     []string
}

func (m *mockService) Name() string           { return m.name }
func (m *mockService) Dependencies() []string { return m.deps }

func (m *mockService) Start(context.Context) error {
	m.log.add("start:" + m.name)
	return m.startErr
}

func (m *mockService) Stop(context.Context) error {
	m.log.add("stop:" + m.name)
	return m.stopErr
}

func TestServiceManager_StartsInDependencyOrder(t *testing.T) {
	j := &journal{}
	sm := NewServiceManager(createTestLogger())

	require.NoError(t, sm.Register(&mockService{name: "http", deps: []string{"inference", "security"}, log: j}))
	require.NoError(t, sm.Register(&mockService{name: "inference", deps: []string{"stats"}, log: j}))
	require.NoError(t, sm.Register(&mockService{name: "security", deps: []string{"stats"}, log: j}))
	require.NoError(t, sm.Register(&mockService{name: "stats", log: j}))

	require.NoError(t, sm.Start(context.Background()))
	assert.Equal(t, []string{"start:stats", "start:inference", "start:security", "start:http"}, j.events)

	j.events = nil
	require.NoError(t, sm.Stop(context.Background()))
	assert.Equal(t, []string{"stop:http", "stop:security", "stop:inference", "stop:stats"}, j.events)
}

func TestServiceManager_FailedStartRollsBack(t *testing.T) {
	j := &journal{}
	sm := NewServiceManager(createTestLogger())

	require.NoError(t, sm.Register(&mockService{name: "stats", log: j}))
	require.NoError(t, sm.Register(&mockService{name: "security", deps: []string{"stats"}, log: j}))
	require.NoError(t, sm.Register(&mockService{name: "http", deps: []string{"security"}, log: j, startErr: errors.New("bind failed")}))

	err := sm.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start service http")
	assert.Equal(t, []string{"start:stats", "start:security", "start:http", "stop:security", "stop:stats"}, j.events)
}

func TestServiceManager_StopReturnsFirstError(t *testing.T) {
	j := &journal{}
	sm := NewServiceManager(createTestLogger())

	require.NoError(t, sm.Register(&mockService{name: "a", log: j, stopErr: errors.New("a failed")}))
	require.NoError(t, sm.Register(&mockService{name: "b", deps: []string{"a"}, log: j, stopErr: errors.New("b failed")}))
	require.NoError(t, sm.Start(context.Background()))

	err := sm.Stop(context.Background())
	require.EqualError(t, err, "b failed")
	assert.Contains(t, j.events, "stop:a", "later services still stop after an error")
}

func TestServiceManager_DependencyErrors(t *testing.T) {
	t.Run("missing dependency", func(t *testing.T) {
		sm := NewServiceManager(createTestLogger())
		require.NoError(t, sm.Register(&mockService{name: "http", deps: []string{"stats"}, log: &journal{}}))

		err := sm.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stats which is not registered")
	})

	t.Run("cycle", func(t *testing.T) {
		sm := NewServiceManager(createTestLogger())
		require.NoError(t, sm.Register(&mockService{name: "a", deps: []string{"b"}, log: &journal{}}))
		require.NoError(t, sm.Register(&mockService{name: "b", deps: []string{"a"}, log: &journal{}}))

		err := sm.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "circular dependency")
	})

	t.Run("duplicate", func(t *testing.T) {
		sm := NewServiceManager(createTestLogger())
		require.NoError(t, sm.Register(&mockService{name: "a", log: &journal{}}))
		assert.Error(t, sm.Register(&mockService{name: "a", log: &journal{}}))
	})
}

func TestServiceRegistry_TypedLookup(t *testing.T) {
	sm := NewServiceManager(createTestLogger())
	statsSvc := NewStatsService(createTestLogger())
	require.NoError(t, sm.Register(statsSvc))

	got, err := sm.GetRegistry().GetStats()
	require.NoError(t, err)
	assert.Same(t, statsSvc, got)

	_, err = sm.GetRegistry().GetHTTP()
	assert.Error(t, err)

	_, err = statsSvc.GetCollector()
	assert.Error(t, err, "collector is only available after Start")
}
