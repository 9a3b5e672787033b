// File: internal/auth/google.go
package auth

import (
	"context"
	"errors"
	"fmt"

	"desirius_backend/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleProviderID is the identity provider ID Firebase expects for Google credentials.
const GoogleProviderID = "google.com"

var errNoIDToken = errors.New("google token response carried no id_token")

// GoogleProvider runs the Google authorization-code flow and hands back the ID token.
type GoogleProvider struct {
	conf *oauth2.Config
}

// NewGoogleProvider returns nil when Google sign-in is not configured.
func NewGoogleProvider(cfg *config.Config) *GoogleProvider {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return nil
	}
	return &GoogleProvider{conf: googleOAuthConfig(cfg)}
}

func googleOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     google.Endpoint,
	}
}

func (p *GoogleProvider) ProviderID() string { return GoogleProviderID }

// AuthCodeURL asks for an account chooser so a signed-out user can switch accounts.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "select_account"))
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (string, error) {
	token, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange google code: %w", err)
	}
	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", errNoIDToken
	}
	return idToken, nil
}
