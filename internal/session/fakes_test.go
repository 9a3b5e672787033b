package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"desirius_backend/internal/common"
	"desirius_backend/internal/shared"
)

// fakeClient is an in-memory provider client. account is the session established by any
// successful sign-in.
type fakeClient struct {
	mu      sync.Mutex
	account *shared.Session
	session *shared.Session

	getErr     error
	signInErr  error
	signUpErr  error
	signOutErr error
	resetErr   error
	updateErr  error
	refreshErr error
	// hangSignOut makes SignOut wait until its context ends.
	hangSignOut bool

	subs       map[int]func(shared.AuthEvent)
	nextSub    int
	subscribed int
	signOuts   int
	refreshes  int
}

func newFakeClient(account *shared.Session) *fakeClient {
	return &fakeClient{account: account, subs: make(map[int]func(shared.AuthEvent))}
}

func (f *fakeClient) establish() *shared.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.account
	f.session = &cp
	out := cp
	return &out
}

func (f *fakeClient) SignInWithPassword(ctx context.Context, email, password string) (*shared.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	sess := f.establish()
	f.emit(shared.AuthEvent{Type: shared.EventSignedIn, Session: sess, Origin: shared.OriginInteractive})
	return sess, nil
}

func (f *fakeClient) SignInWithIdP(ctx context.Context, providerID, idToken string) (*shared.Session, error) {
	if idToken == "" {
		return nil, common.ErrUnauthorized
	}
	sess := f.establish()
	f.emit(shared.AuthEvent{Type: shared.EventSignedIn, Session: sess, Origin: shared.OriginBackground})
	return sess, nil
}

func (f *fakeClient) SignUp(ctx context.Context, req shared.SignUpRequest) (*shared.Session, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	sess := f.establish()
	f.emit(shared.AuthEvent{Type: shared.EventSignedIn, Session: sess, Origin: shared.OriginInteractive})
	return sess, nil
}

func (f *fakeClient) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOuts++
	hang := f.hangSignOut
	f.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}

	f.mu.Lock()
	f.session = nil
	f.mu.Unlock()
	f.emit(shared.AuthEvent{Type: shared.EventSignedOut, Origin: shared.OriginInteractive})
	return f.signOutErr
}

func (f *fakeClient) GetSession(ctx context.Context) (*shared.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.session == nil {
		return nil, nil
	}
	cp := *f.session
	return &cp, nil
}

func (f *fakeClient) UpdatePassword(ctx context.Context, newPassword string) error {
	return f.updateErr
}

func (f *fakeClient) ResetPasswordForEmail(ctx context.Context, email string) error {
	return f.resetErr
}

func (f *fakeClient) RefreshSession(ctx context.Context) error {
	f.mu.Lock()
	f.refreshes++
	f.mu.Unlock()
	return f.refreshErr
}

func (f *fakeClient) NotifyUserUpdated() {
	f.mu.Lock()
	sess := f.session
	f.mu.Unlock()
	if sess == nil {
		return
	}
	f.emit(shared.AuthEvent{Type: shared.EventUserUpdated, Session: sess})
}

func (f *fakeClient) OnAuthStateChange(fn func(shared.AuthEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.subscribed++
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fakeClient) emit(ev shared.AuthEvent) {
	f.mu.Lock()
	fns := make([]func(shared.AuthEvent), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// setSession installs a provider session without emitting an event.
func (f *fakeClient) setSession(sess *shared.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sess == nil {
		f.session = nil
		return
	}
	cp := *sess
	f.session = &cp
}

func (f *fakeClient) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeClient) signOutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOuts
}

// fakeStore is an in-memory profile store. Upserts never overwrite an existing row.
type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]*shared.Profile
	getErr   error
	// gate, when set, holds GetProfile until it is closed or the call's context ends.
	gate      chan struct{}
	upsertErr error

	getCalls int
	upserts  []shared.Profile
	touches  []string
}

func newFakeStore(profiles ...*shared.Profile) *fakeStore {
	s := &fakeStore{profiles: make(map[string]*shared.Profile)}
	for _, p := range profiles {
		s.profiles[p.ID] = p
	}
	return s
}

func (s *fakeStore) GetProfile(ctx context.Context, id string) (*shared.Profile, error) {
	s.mu.Lock()
	s.getCalls++
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) UpsertProfile(ctx context.Context, p *shared.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, *p)
	if s.upsertErr != nil {
		return s.upsertErr
	}
	if _, ok := s.profiles[p.ID]; !ok {
		cp := *p
		s.profiles[p.ID] = &cp
	}
	return nil
}

func (s *fakeStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touches = append(s.touches, id)
	return nil
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}

func (s *fakeStore) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.upserts)
}

func (s *fakeStore) touchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.touches)
}

func (s *fakeStore) setErr(err error) {
	s.mu.Lock()
	s.getErr = err
	s.mu.Unlock()
}

func (s *fakeStore) rename(id, name string) {
	s.mu.Lock()
	s.profiles[id].Name = name
	s.mu.Unlock()
}

type fakeIdP struct {
	token string
	err   error
}

func (p *fakeIdP) ProviderID() string { return "google.com" }

func (p *fakeIdP) AuthCodeURL(state string) string {
	return "https://accounts.example.test/auth?state=" + state
}

func (p *fakeIdP) Exchange(ctx context.Context, code string) (string, error) {
	return p.token, p.err
}

// testRecorder keeps "path:outcome" entries.
type testRecorder struct {
	mu      sync.Mutex
	entries []string
	active  int
}

func (r *testRecorder) ReconcileFinished(path, outcome string) {
	r.mu.Lock()
	r.entries = append(r.entries, path+":"+outcome)
	r.mu.Unlock()
}

func (r *testRecorder) FetchAttempt(string, time.Duration) {}

func (r *testRecorder) SessionsActive(n int) {
	r.mu.Lock()
	r.active = n
	r.mu.Unlock()
}

func (r *testRecorder) has(entry string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e == entry {
			return true
		}
	}
	return false
}

func (r *testRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.entries, ", ")
}
