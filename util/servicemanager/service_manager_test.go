package servicemanager

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.events...)
}

type testService struct {
	name     string
	rec      *recorder
	initErr  error
	startErr error
	status   int
	noReady  bool
}

func (s *testService) Health(_ context.Context, _ bool) (int, string, error) {
	if s.status == 0 {
		return http.StatusOK, "OK", nil
	}

	return s.status, "unhealthy", nil
}

func (s *testService) Init(_ context.Context) error {
	s.rec.add("init " + s.name)
	return s.initErr
}

func (s *testService) Start(ctx context.Context, readyCh chan<- struct{}) error {
	s.rec.add("start " + s.name)

	if s.startErr != nil {
		return s.startErr
	}

	if !s.noReady {
		close(readyCh)
	}

	<-ctx.Done()

	return nil
}

func (s *testService) Stop(_ context.Context) error {
	s.rec.add("stop " + s.name)
	return nil
}

func withPrefix(events []string, prefix string) []string {
	var out []string

	for _, e := range events {
		if strings.HasPrefix(e, prefix) {
			out = append(out, e)
		}
	}

	return out
}

func TestServiceManagerLifecycle(t *testing.T) {
	rec := &recorder{}
	sm := NewServiceManager(context.Background(), ulogger.TestLogger{})

	require.NoError(t, sm.AddService("chain", &testService{name: "chain", rec: rec}))
	require.NoError(t, sm.AddService("assembly", &testService{name: "assembly", rec: rec}))
	require.NoError(t, sm.AddService("rpc", &testService{name: "rpc", rec: rec}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, sm.WaitForServiceToBeReady(ctx))
	assert.Empty(t, sm.ServicesNotReady())

	status, details, err := sm.HealthHandler(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, details, `"resource":"assembly"`)

	sm.ForceShutdown()
	require.NoError(t, sm.Wait())

	events := rec.list()
	require.Len(t, events, 9)
	assert.Equal(t, []string{"init chain", "init assembly", "init rpc"}, withPrefix(events, "init "))
	assert.Equal(t, []string{"start chain", "start assembly", "start rpc"}, withPrefix(events, "start "))
	assert.Equal(t, []string{"stop rpc", "stop assembly", "stop chain"}, events[6:])
}

func TestServiceManagerInitError(t *testing.T) {
	sm := NewServiceManager(context.Background(), ulogger.TestLogger{})
	defer sm.ForceShutdown()

	err := sm.AddService("broken", &testService{name: "broken", rec: &recorder{}, initErr: errors.NewConfigurationError("bad")})
	require.ErrorIs(t, err, errors.ErrServiceError)
	require.ErrorIs(t, err, errors.ErrConfiguration)
}

func TestServiceManagerStartError(t *testing.T) {
	rec := &recorder{}
	sm := NewServiceManager(context.Background(), ulogger.TestLogger{})

	require.NoError(t, sm.AddService("ok", &testService{name: "ok", rec: rec}))
	require.NoError(t, sm.AddService("failing", &testService{name: "failing", rec: rec, startErr: errors.NewServiceError("listen failed")}))

	err := sm.Wait()
	require.ErrorIs(t, err, errors.ErrServiceError)

	events := rec.list()
	assert.Contains(t, events, "stop ok")
	assert.Contains(t, events, "stop failing")
}

func TestServiceManagerNotReady(t *testing.T) {
	sm := NewServiceManager(context.Background(), ulogger.TestLogger{})

	require.NoError(t, sm.AddService("slow", &testService{name: "slow", rec: &recorder{}, noReady: true, status: http.StatusServiceUnavailable}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, sm.WaitForServiceToBeReady(ctx), errors.ErrServiceUnavailable)
	assert.Equal(t, []string{"slow"}, sm.ServicesNotReady())

	status, _, err := sm.HealthHandler(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	sm.ForceShutdown()
	require.NoError(t, sm.Wait())
}
