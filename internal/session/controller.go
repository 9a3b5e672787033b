// File: internal/session/controller.go
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"desirius_backend/internal/common"
	"desirius_backend/internal/shared"
)

const (
	eventQueueSize = 16
	checkKey       = "check"
)

// User-facing messages stored in State.Error when an operation fails without a more specific one.
const (
	msgLoginFailed        = "Erro durante login"
	msgGoogleFailed       = "Erro durante login com Google"
	msgRegisterFailed     = "Erro durante o registro"
	msgForgotFailed       = "Erro ao processar recuperação de senha"
	msgResetFailed        = "Erro ao redefinir senha"
	msgProfileUnavailable = "Não foi possível carregar seu perfil. Tente novamente"
	msgSessionCheckFailed = "Não foi possível verificar sua sessão"
)

// IdentityProvider starts and completes a third-party redirect sign-in.
type IdentityProvider interface {
	ProviderID() string
	AuthCodeURL(state string) string
	// Exchange trades the callback code for the provider's ID token.
	Exchange(ctx context.Context, code string) (string, error)
}

// Controller reconciles one browser's provider session with its profile.
//
// Provider events are handled one at a time by a single goroutine. Every reconciliation
// carries a sequence number and commits only if no newer one has started since.
type Controller struct {
	client shared.AuthClient
	idp    IdentityProvider
	store  shared.ProfileStore
	fetch  *fetcher
	opts   Options
	rec    Recorder
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	state State
	seq   uint64

	subMu       sync.Mutex
	unsubscribe func()
	stopLoop    context.CancelFunc
	loopDone    chan struct{}
	closed      bool

	ctx       context.Context
	cancel    context.CancelFunc
	bg        sync.WaitGroup
	checks    singleflight.Group
	closeOnce sync.Once
}

// New creates a controller in the Loading state. Call Start to subscribe and reconcile.
// idp and rec may be nil.
func New(client shared.AuthClient, store shared.ProfileStore, idp IdentityProvider, opts Options, rec Recorder, logger *zap.Logger) *Controller {
	if rec == nil {
		rec = nopRecorder{}
	}
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		client: client,
		idp:    idp,
		store:  store,
		fetch:  &fetcher{store: store, opts: opts, rec: rec, logger: logger},
		opts:   opts,
		rec:    rec,
		logger: logger,
		now:    time.Now,
		state:  State{IsLoading: true},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to provider events, replacing any earlier subscription, and runs the
// startup reconciliation.
func (c *Controller) Start(ctx context.Context) {
	c.subscribe()
	c.check(ctx, PathStartup)
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// CheckSession reconciles against the provider's current session. It is a no-op when the
// state already reflects that session; concurrent calls share one reconciliation.
func (c *Controller) CheckSession(ctx context.Context) {
	c.check(ctx, PathCheck)
}

func (c *Controller) check(ctx context.Context, path string) {
	if c.isClosed() {
		return
	}
	ch := c.checks.DoChan(checkKey, func() (interface{}, error) {
		c.checkSession(c.ctx, path)
		return nil, nil
	})
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

func (c *Controller) checkSession(ctx context.Context, path string) {
	sess, err := c.client.GetSession(ctx)
	if err != nil {
		c.logger.Warn("Session lookup failed", zap.Error(err))
		seq := c.begin(false)
		c.finish(path, seq, State{Error: userMessage(err, msgSessionCheckFailed)}, OutcomeFailed)
		return
	}

	st := c.State()
	if sess == nil {
		if !st.IsLoading && !st.IsAuthenticated {
			return
		}
		seq := c.begin(false)
		c.finish(path, seq, State{}, OutcomeUnauthenticated)
		return
	}
	if !st.IsLoading && st.IsAuthenticated && st.Profile != nil && st.Profile.ID == sess.UserID {
		return
	}
	seq := c.begin(false)
	c.reconcilePassive(ctx, seq, sess, path)
}

// Login signs in with e-mail and password and loads the profile, retrying the fetch.
// On failure State.Error holds a message for the form and the error is returned.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	seq := c.begin(true)
	sess, err := c.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return c.fail(seq, err, msgLoginFailed)
	}
	return c.reconcileExplicit(ctx, seq, sess, func() *shared.Profile {
		return FallbackProfile(sess, c.now())
	})
}

// Register creates the account and its profile row, then loads the profile like Login.
func (c *Controller) Register(ctx context.Context, req shared.SignUpRequest) error {
	seq := c.begin(true)
	sess, err := c.client.SignUp(ctx, req)
	if err != nil {
		return c.fail(seq, err, msgRegisterFailed)
	}
	if sess == nil {
		c.finish(PathExplicit, seq, State{}, OutcomeUnauthenticated)
		return nil
	}

	seed := func() *shared.Profile {
		p := FallbackProfile(sess, c.now())
		if req.Name != "" {
			p.Name = req.Name
		}
		p.Phone = req.Phone
		return p
	}
	if err := c.fetch.upsert(ctx, seed()); err != nil {
		c.logger.Warn("Creating profile row at registration failed", zap.String("userID", sess.UserID), zap.Error(err))
	}
	return c.reconcileExplicit(ctx, seq, sess, seed)
}

// LoginWithGoogle returns the URL that starts the redirect flow. Completion arrives later
// as a signed-in event, so the state is not put into Loading here.
func (c *Controller) LoginWithGoogle(state string) (string, error) {
	if c.idp == nil {
		err := common.ErrServiceUnavailable.WithDetails(msgGoogleFailed)
		c.setError(msgGoogleFailed)
		return "", err
	}
	c.setError("")
	return c.idp.AuthCodeURL(state), nil
}

// CompleteOAuth exchanges the callback code and signs in with the provider's ID token.
// The profile is reconciled when the resulting signed-in event is handled.
func (c *Controller) CompleteOAuth(ctx context.Context, code string) error {
	if c.idp == nil {
		return common.ErrServiceUnavailable.WithDetails(msgGoogleFailed)
	}
	seq := c.begin(true)
	idToken, err := c.idp.Exchange(ctx, code)
	if err != nil {
		c.logger.Warn("OAuth code exchange failed", zap.Error(err))
		return c.fail(seq, err, msgGoogleFailed)
	}
	if _, err := c.client.SignInWithIdP(ctx, c.idp.ProviderID(), idToken); err != nil {
		return c.fail(seq, err, msgGoogleFailed)
	}
	return nil
}

// Logout signs out within the configured bound and always ends unauthenticated.
func (c *Controller) Logout(ctx context.Context) {
	c.begin(true)

	sctx, cancel := context.WithTimeout(ctx, c.opts.SignOutTimeout)
	defer cancel()
	done := make(chan error, 1)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		done <- c.client.SignOut(sctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			c.logger.Warn("Provider sign-out failed, clearing local session anyway", zap.Error(err))
		}
	case <-sctx.Done():
		c.logger.Warn("Provider sign-out did not finish in time, clearing local session anyway",
			zap.Duration("timeout", c.opts.SignOutTimeout))
	}
	c.clear(PathLogout)
}

// ForgotPassword sends the password-reset e-mail.
func (c *Controller) ForgotPassword(ctx context.Context, email string) error {
	c.setError("")
	if err := c.client.ResetPasswordForEmail(ctx, email); err != nil {
		c.setError(userMessage(err, msgForgotFailed))
		return err
	}
	return nil
}

// ResetPassword sets a new password for the signed-in user.
func (c *Controller) ResetPassword(ctx context.Context, newPassword string) error {
	c.setError("")
	if err := c.client.UpdatePassword(ctx, newPassword); err != nil {
		c.setError(userMessage(err, msgResetFailed))
		return err
	}
	return nil
}

// RefreshSession asks the provider to renew the session; the outcome arrives as an event.
func (c *Controller) RefreshSession(ctx context.Context) error {
	return c.client.RefreshSession(ctx)
}

// NotifyUserUpdated makes the controller refetch the profile after an edit.
func (c *Controller) NotifyUserUpdated() {
	c.client.NotifyUserUpdated()
}

// Close cancels the subscription and in-flight work and waits for background writes.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.subMu.Lock()
		c.closed = true
		c.cancel()
		c.stopSubscriptionLocked()
		c.subMu.Unlock()
		c.bg.Wait()
	})
}

func (c *Controller) isClosed() bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return c.closed
}

func (c *Controller) subscribe() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.closed {
		return
	}
	c.stopSubscriptionLocked()

	queue := make(chan shared.AuthEvent, eventQueueSize)
	loopCtx, stop := context.WithCancel(c.ctx)
	done := make(chan struct{})
	c.unsubscribe = c.client.OnAuthStateChange(func(ev shared.AuthEvent) {
		select {
		case queue <- ev:
		case <-loopCtx.Done():
		}
	})
	c.stopLoop = stop
	c.loopDone = done
	go c.run(loopCtx, queue, done)
}

func (c *Controller) stopSubscriptionLocked() {
	if c.unsubscribe == nil {
		return
	}
	c.unsubscribe()
	c.stopLoop()
	<-c.loopDone
	c.unsubscribe, c.stopLoop, c.loopDone = nil, nil, nil
}

func (c *Controller) run(ctx context.Context, queue <-chan shared.AuthEvent, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-queue:
			c.handle(ctx, ev)
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev shared.AuthEvent) {
	c.logger.Debug("Auth event", zap.String("type", string(ev.Type)), zap.Int("origin", int(ev.Origin)))
	switch ev.Type {
	case shared.EventSignedIn:
		// explicit calls reconcile their own result
		if ev.Origin == shared.OriginInteractive || ev.Session == nil {
			c.rec.ReconcileFinished(PathSignedIn, OutcomeIgnored)
			return
		}
		seq := c.begin(false)
		c.reconcilePassive(ctx, seq, ev.Session, PathSignedIn)
	case shared.EventSignedOut:
		if ev.Origin == shared.OriginInteractive {
			c.rec.ReconcileFinished(PathSignedOut, OutcomeIgnored)
			return
		}
		c.clear(PathSignedOut)
	case shared.EventTokenRefreshed:
		st := c.State()
		if ev.Session != nil && st.IsAuthenticated && st.Profile != nil && st.Profile.ID == ev.Session.UserID {
			c.touchLastLogin(ev.Session.UserID)
		}
	case shared.EventUserUpdated:
		c.refetch(ctx)
	}
}

// reconcilePassive never fails: a fetch error or timeout yields the fallback profile.
func (c *Controller) reconcilePassive(ctx context.Context, seq uint64, sess *shared.Session, path string) {
	p, err := c.fetch.once(ctx, sess.UserID)
	if ctx.Err() != nil {
		return
	}
	if err == nil {
		if c.finish(path, seq, State{Profile: p, IsAuthenticated: true}, OutcomeVerified) {
			c.touchLastLogin(sess.UserID)
		}
		return
	}

	c.logger.Warn("Profile fetch failed, continuing with fallback profile",
		zap.String("userID", sess.UserID), zap.Error(err))
	fb := FallbackProfile(sess, c.now())
	c.finish(path, seq, State{Profile: fb, IsAuthenticated: true, Fallback: true}, OutcomeFallback)
	c.persistFallback(fb)
}

func (c *Controller) reconcileExplicit(ctx context.Context, seq uint64, sess *shared.Session, seed func() *shared.Profile) error {
	p, err := c.fetch.withRetry(ctx, sess, seed)
	if err != nil {
		c.logger.Error("Profile unavailable after sign-in", zap.String("userID", sess.UserID), zap.Error(err))
		failErr := common.ErrServiceUnavailable.WithDetails(msgProfileUnavailable)
		if !c.latest(seq) {
			// a newer reconciliation has already settled against this provider session
			return c.fail(seq, failErr, msgProfileUnavailable)
		}
		c.abandon()
		if !c.finish(PathExplicit, seq, State{Error: userMessage(failErr, msgProfileUnavailable)}, OutcomeFailed) {
			// superseded while signing out: nothing may keep the dropped session
			c.clear(PathExplicit)
		}
		return failErr
	}
	if c.finish(PathExplicit, seq, State{Profile: p, IsAuthenticated: true}, OutcomeVerified) {
		c.touchLastLogin(p.ID)
	}
	return nil
}

// abandon drops a provider session whose profile could not be loaded.
func (c *Controller) abandon() {
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.SignOutTimeout)
	defer cancel()
	if err := c.client.SignOut(ctx); err != nil {
		c.logger.Warn("Sign-out after failed profile load failed", zap.Error(err))
	}
}

// refetch handles user-updated: one attempt, and a failure leaves the profile as it is.
func (c *Controller) refetch(ctx context.Context) {
	c.mu.Lock()
	st := c.state
	seq := c.seq
	c.mu.Unlock()
	if st.IsLoading || !st.IsAuthenticated || st.Profile == nil {
		c.rec.ReconcileFinished(PathUserUpdated, OutcomeIgnored)
		return
	}

	p, err := c.fetch.once(ctx, st.Profile.ID)
	if err != nil {
		c.logger.Debug("Profile refetch after user update failed", zap.String("userID", st.Profile.ID), zap.Error(err))
		c.rec.ReconcileFinished(PathUserUpdated, OutcomeFailed)
		return
	}
	c.finish(PathUserUpdated, seq, State{Profile: p, IsAuthenticated: true}, OutcomeVerified)
}

// begin starts a reconciliation and returns its sequence number.
func (c *Controller) begin(clearError bool) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.state.IsLoading = true
	if clearError {
		c.state.Error = ""
	}
	return c.seq
}

func (c *Controller) latest(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return seq == c.seq
}

// finish commits next if seq is still the latest reconciliation.
func (c *Controller) finish(path string, seq uint64, next State, outcome string) bool {
	c.mu.Lock()
	committed := seq == c.seq
	if committed {
		next.IsLoading = false
		c.state = next
	}
	c.mu.Unlock()

	if !committed {
		c.logger.Debug("Discarding superseded reconciliation", zap.String("path", path), zap.Uint64("seq", seq))
		outcome = OutcomeDiscarded
	}
	c.rec.ReconcileFinished(path, outcome)
	return committed
}

// clear supersedes every reconciliation in flight and commits the signed-out state.
func (c *Controller) clear(path string) {
	c.mu.Lock()
	c.seq++
	c.state = State{}
	c.mu.Unlock()
	c.rec.ReconcileFinished(path, OutcomeCleared)
}

func (c *Controller) fail(seq uint64, err error, fallback string) error {
	c.finish(PathExplicit, seq, State{Error: userMessage(err, fallback)}, OutcomeFailed)
	return err
}

func (c *Controller) setError(msg string) {
	c.mu.Lock()
	c.state.Error = msg
	c.mu.Unlock()
}

func (c *Controller) touchLastLogin(id string) {
	at := c.now()
	c.goBackground("touch_last_login", id, func(ctx context.Context) error {
		return c.store.TouchLastLogin(ctx, id, at)
	})
}

// persistFallback writes the fallback profile once; the outcome is only logged.
func (c *Controller) persistFallback(p *shared.Profile) {
	row := *p
	c.goBackground("fallback_upsert", p.ID, func(ctx context.Context) error {
		return c.store.UpsertProfile(ctx, &row)
	})
}

func (c *Controller) goBackground(task, userID string, fn func(context.Context) error) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.FetchTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			c.logger.Warn("Background profile write failed", zap.String("task", task), zap.String("userID", userID), zap.Error(err))
			return
		}
		c.logger.Debug("Background profile write done", zap.String("task", task), zap.String("userID", userID))
	}()
}

func userMessage(err error, fallback string) string {
	if apiErr, ok := common.IsAPIError(err); ok {
		return apiErr.UserMessage()
	}
	return fallback
}
