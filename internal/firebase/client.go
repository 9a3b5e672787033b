// File: internal/firebase/client.go
package firebase

import (
	"context"
	"strings"
	"sync"
	"time"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"

	"desirius_backend/internal/common"
	"desirius_backend/internal/shared"
)

// Client is the provider as seen by one browser session. It keeps that session's tokens
// and emits lifecycle events to its subscribers.
type Client struct {
	p      provider
	logger *zap.Logger
	now    func() time.Time
	events hub

	mu       sync.Mutex
	session  *shared.Session
	issuedAt time.Time
}

var _ shared.AuthClient = (*Client)(nil)

func newClient(p provider, logger *zap.Logger) *Client {
	return &Client{p: p, logger: logger.Named("auth_client"), now: time.Now}
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*shared.Session, error) {
	g, err := c.p.passwordSignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		c.logger.Debug("Password sign-in rejected", zap.Error(err))
		return nil, mapError(err)
	}
	sess := c.establish(ctx, g, providerPassword, shared.SessionMetadata{})
	c.events.emit(shared.AuthEvent{Type: shared.EventSignedIn, Session: sess, Origin: shared.OriginInteractive})
	return sess, nil
}

// SignInWithIdP completes a redirect sign-in. Its signed-in event is a background event:
// the browser that started the flow learns about it through the event, not the call.
func (c *Client) SignInWithIdP(ctx context.Context, providerID, idToken string) (*shared.Session, error) {
	g, err := c.p.idpSignIn(ctx, providerID, idToken)
	if err != nil {
		c.logger.Debug("IdP sign-in rejected", zap.String("provider", providerID), zap.Error(err))
		return nil, mapError(err)
	}
	name := providerID
	if providerID == googleIdPProvider {
		name = providerGoogle
	}
	sess := c.establish(ctx, g, name, shared.SessionMetadata{})
	c.events.emit(shared.AuthEvent{Type: shared.EventSignedIn, Session: sess, Origin: shared.OriginBackground})
	return sess, nil
}

func (c *Client) SignUp(ctx context.Context, req shared.SignUpRequest) (*shared.Session, error) {
	g, err := c.p.signUp(ctx, strings.TrimSpace(req.Email), req.Password, req.Name)
	if err != nil {
		c.logger.Debug("Sign-up rejected", zap.Error(err))
		return nil, mapError(err)
	}
	sess := c.establish(ctx, g, providerPassword, shared.SessionMetadata{FullName: req.Name, Phone: req.Phone})
	c.events.emit(shared.AuthEvent{Type: shared.EventSignedIn, Session: sess, Origin: shared.OriginInteractive})
	return sess, nil
}

// SignOut forgets the local session first, then revokes the user's refresh tokens.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	sess := c.session
	c.session = nil
	c.issuedAt = time.Time{}
	c.mu.Unlock()

	if sess == nil {
		return nil
	}
	err := c.p.revoke(ctx, sess.UserID)
	c.events.emit(shared.AuthEvent{Type: shared.EventSignedOut, Origin: shared.OriginInteractive})
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Client) GetSession(ctx context.Context) (*shared.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, nil
	}
	cp := *c.session
	return &cp, nil
}

func (c *Client) UpdatePassword(ctx context.Context, newPassword string) error {
	sess, err := c.freshSession(ctx)
	if err != nil {
		return err
	}
	g, err := c.p.setPassword(ctx, sess.AccessToken, newPassword)
	if err != nil {
		return mapError(err)
	}
	updated := c.replaceTokens(sess.UserID, g)
	if updated != nil {
		c.events.emit(shared.AuthEvent{Type: shared.EventUserUpdated, Session: updated, Origin: shared.OriginInteractive})
	}
	return nil
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email string) error {
	if err := c.p.sendPasswordReset(ctx, strings.TrimSpace(email)); err != nil {
		return mapResetError(err)
	}
	return nil
}

// RefreshSession renews the tokens, or ends the session when the account was deleted, disabled
// or had its tokens revoked since they were issued.
func (c *Client) RefreshSession(ctx context.Context) error {
	c.mu.Lock()
	sess := c.session
	issuedAt := c.issuedAt
	c.mu.Unlock()
	if sess == nil {
		return nil
	}

	rec, err := c.p.lookup(ctx, sess.UserID)
	if err != nil {
		if auth.IsUserNotFound(err) {
			c.expire(sess.UserID, "user deleted")
			return nil
		}
		return mapError(err)
	}
	if rec.Disabled {
		c.expire(sess.UserID, "user disabled")
		return nil
	}
	if rec.TokensValidAfterMillis > issuedAt.UnixMilli() {
		c.expire(sess.UserID, "tokens revoked")
		return nil
	}

	g, err := c.p.refresh(ctx, sess.UserID)
	if err != nil {
		return mapError(err)
	}
	if updated := c.replaceTokens(sess.UserID, g); updated != nil {
		c.events.emit(shared.AuthEvent{Type: shared.EventTokenRefreshed, Session: updated, Origin: shared.OriginBackground})
	}
	return nil
}

func (c *Client) NotifyUserUpdated() {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return
	}
	cp := *c.session
	c.mu.Unlock()
	c.events.emit(shared.AuthEvent{Type: shared.EventUserUpdated, Session: &cp, Origin: shared.OriginBackground})
}

func (c *Client) OnAuthStateChange(fn func(shared.AuthEvent)) func() {
	return c.events.subscribe(fn)
}

// establish stores the session built from g and returns a copy of it.
func (c *Client) establish(ctx context.Context, g *grant, providerName string, meta shared.SessionMetadata) *shared.Session {
	now := c.now()
	if meta.FullName == "" {
		meta.FullName = g.DisplayName
	}
	meta.AvatarURL = g.PhotoURL

	// Phone and photo live on the account record; missing them is not an error.
	if rec, err := c.p.lookup(ctx, g.UserID); err == nil && rec != nil && rec.UserInfo != nil {
		if meta.Phone == "" {
			meta.Phone = rec.PhoneNumber
		}
		if meta.AvatarURL == "" {
			meta.AvatarURL = rec.PhotoURL
		}
		if meta.Name == "" {
			meta.Name = rec.DisplayName
		}
	} else if err != nil {
		c.logger.Debug("Account lookup after sign-in failed", zap.String("uid", g.UserID), zap.Error(err))
	}

	sess := &shared.Session{
		AccessToken:  g.IDToken,
		RefreshToken: g.RefreshToken,
		ExpiresAt:    now.Add(g.ExpiresIn),
		UserID:       g.UserID,
		Email:        strings.ToLower(g.Email),
		Provider:     providerName,
		Metadata:     meta,
	}

	c.mu.Lock()
	c.session = sess
	c.issuedAt = now
	c.mu.Unlock()

	cp := *sess
	return &cp
}

// replaceTokens swaps in the tokens of g if uid is still signed in, returning the new session.
func (c *Client) replaceTokens(uid string, g *grant) *shared.Session {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.UserID != uid {
		return nil
	}
	c.session.AccessToken = g.IDToken
	if g.RefreshToken != "" {
		c.session.RefreshToken = g.RefreshToken
	}
	c.session.ExpiresAt = now.Add(g.ExpiresIn)
	c.issuedAt = now
	cp := *c.session
	return &cp
}

// freshSession returns the current session, refreshing its ID token first when it has expired.
func (c *Client) freshSession(ctx context.Context) (*shared.Session, error) {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return nil, common.ErrUnauthorized.WithDetails(msgSessionExpired)
	}
	sess := *c.session
	c.mu.Unlock()

	if c.now().Before(sess.ExpiresAt) {
		return &sess, nil
	}
	g, err := c.p.refresh(ctx, sess.UserID)
	if err != nil {
		return nil, mapError(err)
	}
	updated := c.replaceTokens(sess.UserID, g)
	if updated == nil {
		return nil, common.ErrUnauthorized.WithDetails(msgSessionExpired)
	}
	return updated, nil
}

func (c *Client) expire(uid, reason string) {
	c.mu.Lock()
	if c.session == nil || c.session.UserID != uid {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.issuedAt = time.Time{}
	c.mu.Unlock()

	c.logger.Info("Provider session ended", zap.String("uid", uid), zap.String("reason", reason))
	c.events.emit(shared.AuthEvent{Type: shared.EventSignedOut, Origin: shared.OriginBackground})
}
