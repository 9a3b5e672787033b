// File: internal/firebase/service.go
package firebase

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"desirius_backend/internal/config"
	"desirius_backend/internal/shared"
)

const (
	resetRequestType  = "PASSWORD_RESET"
	defaultTokenLife  = time.Hour
	providerPassword  = "email"
	providerGoogle    = "google"
	googleIdPProvider = "google.com"
)

// grant is the outcome of any provider call that issues tokens.
type grant struct {
	UserID       string
	Email        string
	DisplayName  string
	PhotoURL     string
	IDToken      string
	RefreshToken string
	ExpiresIn    time.Duration
}

// provider is the set of remote calls a Client makes.
type provider interface {
	passwordSignIn(ctx context.Context, email, password string) (*grant, error)
	signUp(ctx context.Context, email, password, displayName string) (*grant, error)
	idpSignIn(ctx context.Context, providerID, idToken string) (*grant, error)
	sendPasswordReset(ctx context.Context, email string) error
	setPassword(ctx context.Context, idToken, password string) (*grant, error)
	refresh(ctx context.Context, uid string) (*grant, error)
	lookup(ctx context.Context, uid string) (*auth.UserRecord, error)
	revoke(ctx context.Context, uid string) error
}

// FirebaseService holds the Admin SDK auth client and the Identity Toolkit REST client.
// It creates one Client per browser session.
type FirebaseService struct {
	authClient *auth.Client
	toolkit    *identitytoolkit.Service
	cfg        *config.Config
	logger     *zap.Logger
}

var (
	_ provider                 = (*FirebaseService)(nil)
	_ shared.AuthClientFactory = (*FirebaseService)(nil)
)

// NewFirebaseService initializes the Firebase Admin SDK and the Identity Toolkit client.
func NewFirebaseService(cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	if cfg.FirebaseServiceAccountKeyPath == "" {
		logger.Error("Firebase service account key path is not configured.")
		return nil, fmt.Errorf("firebase service account key path is required")
	}

	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := firebase.NewApp(context.Background(), conf, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	authClient, err := app.Auth(context.Background())
	if err != nil {
		logger.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	toolkit, err := identitytoolkit.NewService(context.Background(), option.WithAPIKey(cfg.FirebaseWebAPIKey))
	if err != nil {
		logger.Error("Failed to create Identity Toolkit client", zap.Error(err))
		return nil, fmt.Errorf("error creating identity toolkit client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return &FirebaseService{
		authClient: authClient,
		toolkit:    toolkit,
		cfg:        cfg,
		logger:     logger.Named("firebase"),
	}, nil
}

// NewClient creates the provider client for one browser session.
func (s *FirebaseService) NewClient() shared.AuthClient {
	return newClient(s, s.logger)
}

func (s *FirebaseService) passwordSignIn(ctx context.Context, email, password string) (*grant, error) {
	resp, err := s.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return &grant{
		UserID:       resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		PhotoURL:     resp.PhotoUrl,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    tokenLife(resp.ExpiresIn),
	}, nil
}

func (s *FirebaseService) signUp(ctx context.Context, email, password, displayName string) (*grant, error) {
	resp, err := s.toolkit.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return &grant{
		UserID:       resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    tokenLife(resp.ExpiresIn),
	}, nil
}

func (s *FirebaseService) idpSignIn(ctx context.Context, providerID, idToken string) (*grant, error) {
	body := url.Values{"id_token": {idToken}, "providerId": {providerID}}
	resp, err := s.toolkit.Relyingparty.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          body.Encode(),
		RequestUri:        s.cfg.GoogleRedirectURI,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	name := resp.FullName
	if name == "" {
		name = resp.DisplayName
	}
	return &grant{
		UserID:       resp.LocalId,
		Email:        resp.Email,
		DisplayName:  name,
		PhotoURL:     resp.PhotoUrl,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    tokenLife(resp.ExpiresIn),
	}, nil
}

func (s *FirebaseService) sendPasswordReset(ctx context.Context, email string) error {
	_, err := s.toolkit.Relyingparty.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: resetRequestType,
		Email:       email,
		ContinueUrl: s.cfg.PasswordResetRedirectURL,
	}).Context(ctx).Do()
	return err
}

func (s *FirebaseService) setPassword(ctx context.Context, idToken, password string) (*grant, error) {
	resp, err := s.toolkit.Relyingparty.SetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{
		IdToken:           idToken,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return &grant{
		UserID:       resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		PhotoURL:     resp.PhotoUrl,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    tokenLife(resp.ExpiresIn),
	}, nil
}

// refresh mints a custom token for uid and exchanges it for a fresh ID token.
func (s *FirebaseService) refresh(ctx context.Context, uid string) (*grant, error) {
	custom, err := s.authClient.CustomToken(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("mint custom token: %w", err)
	}
	resp, err := s.toolkit.Relyingparty.VerifyCustomToken(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyCustomTokenRequest{
		Token:             custom,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return &grant{
		UserID:       uid,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    tokenLife(resp.ExpiresIn),
	}, nil
}

func (s *FirebaseService) lookup(ctx context.Context, uid string) (*auth.UserRecord, error) {
	return s.authClient.GetUser(ctx, uid)
}

// revoke invalidates every refresh token of uid, signing the user out everywhere.
func (s *FirebaseService) revoke(ctx context.Context, uid string) error {
	if err := s.authClient.RevokeRefreshTokens(ctx, uid); err != nil {
		s.logger.Error("Failed to revoke refresh tokens", zap.Error(err), zap.String("uid", uid))
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	s.logger.Info("Successfully revoked refresh tokens for user", zap.String("uid", uid))
	return nil
}

func tokenLife(seconds int64) time.Duration {
	if seconds <= 0 {
		return defaultTokenLife
	}
	return time.Duration(seconds) * time.Second
}
