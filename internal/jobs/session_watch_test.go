package jobs

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"desirius_backend/internal/config"
	"desirius_backend/internal/session"
	"desirius_backend/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type watchClient struct {
	shared.AuthClient
	session    *shared.Session
	refreshErr error
	refreshed  int
}

func (c *watchClient) GetSession(context.Context) (*shared.Session, error) { return c.session, nil }
func (c *watchClient) RefreshSession(context.Context) error {
	c.refreshed++
	return c.refreshErr
}
func (c *watchClient) SignOut(context.Context) error { return nil }
func (c *watchClient) OnAuthStateChange(func(shared.AuthEvent)) func() {
	return func() {}
}

type watchStore struct{}

func (watchStore) GetProfile(_ context.Context, id string) (*shared.Profile, error) {
	return &shared.Profile{ID: id, Name: "Cliente " + id}, nil
}
func (watchStore) UpsertProfile(context.Context, *shared.Profile) error      { return nil }
func (watchStore) TouchLastLogin(context.Context, string, time.Time) error { return nil }

type fakeSessions struct {
	sweeps int
	ctrls  map[string]*session.Controller
}

func (f *fakeSessions) Sweep() { f.sweeps++ }

func (f *fakeSessions) Each(fn func(id string, ctrl *session.Controller)) {
	ids := make([]string, 0, len(f.ctrls))
	for id := range f.ctrls {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fn(id, f.ctrls[id])
	}
}

func startController(t *testing.T, client *watchClient) *session.Controller {
	t.Helper()
	ctrl := session.New(client, watchStore{}, nil, session.Options{FetchTimeout: time.Second}, nil, zap.NewNop())
	ctrl.Start(context.Background())
	t.Cleanup(ctrl.Close)
	return ctrl
}

func TestSessionWatchJob_Run(t *testing.T) {
	ok := &watchClient{session: &shared.Session{UserID: "u1", Email: "a@b.com"}}
	failing := &watchClient{session: &shared.Session{UserID: "u2", Email: "c@d.com"}, refreshErr: errors.New("token revoked")}
	anonymous := &watchClient{}

	sessions := &fakeSessions{ctrls: map[string]*session.Controller{
		"a-session": startController(t, ok),
		"b-session": startController(t, failing),
		"c-session": startController(t, anonymous),
	}}
	require.True(t, sessions.ctrls["a-session"].State().IsAuthenticated)
	require.False(t, sessions.ctrls["c-session"].State().IsAuthenticated)

	job := NewSessionWatchJob(sessions, zap.NewNop(), &config.Config{})
	refreshed, failed := job.Run(context.Background())

	assert.Equal(t, 1, refreshed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, sessions.sweeps)
	assert.Equal(t, 1, ok.refreshed)
	assert.Equal(t, 0, anonymous.refreshed)
}

func TestSessionWatchJob_Run_Cancelled(t *testing.T) {
	client := &watchClient{session: &shared.Session{UserID: "u1"}}
	sessions := &fakeSessions{ctrls: map[string]*session.Controller{"a": startController(t, client)}}
	job := NewSessionWatchJob(sessions, zap.NewNop(), &config.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	refreshed, failed := job.Run(ctx)

	assert.Zero(t, refreshed)
	assert.Zero(t, failed)
	assert.Zero(t, client.refreshed)
}

func TestSessionWatchJob_SetupAndStart(t *testing.T) {
	sessions := &fakeSessions{}

	disabled := NewSessionWatchJob(sessions, zap.NewNop(), &config.Config{})
	assert.NoError(t, disabled.SetupAndStart())

	invalid := NewSessionWatchJob(sessions, zap.NewNop(), &config.Config{SessionRefreshSchedule: "not a schedule"})
	assert.Error(t, invalid.SetupAndStart())

	job := NewSessionWatchJob(sessions, zap.NewNop(), &config.Config{SessionRefreshSchedule: "@every 1h"})
	require.NoError(t, job.SetupAndStart())
	job.Stop()
}
