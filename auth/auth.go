// Package auth fetches OAuth2 client-credentials tokens used as broker
// passwords.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const tokenTimeout = 10 * time.Second

type ClientCred struct {
	mu    sync.Mutex
	conf  clientcredentials.Config
	token *oauth2.Token
}

func NewClientCred(conf Conf) *ClientCred {
	return &ClientCred{
		conf: conf.toOauth2Config(),
	}
}

// GetToken returns the cached access token while it is valid and requests a
// new one otherwise.
func (c *ClientCred) GetToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != nil && c.token.Valid() {
		return c.token.AccessToken, nil
	}
	return c.fetch(ctx)
}

// ForceRefresh discards the cached token and requests a new one.
func (c *ClientCred) ForceRefresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetch(ctx)
}

func (c *ClientCred) fetch(ctx context.Context) (string, error) {
	tok, err := c.conf.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	c.token = tok
	return tok.AccessToken, nil
}

// Credentials returns a provider yielding username and a fresh token. It is
// called on every (re)connect, so failures yield an empty password and are
// reported through onErr.
func (c *ClientCred) Credentials(username string, onErr func(error)) func() (string, string) {
	return func() (string, string) {
		ctx, cancel := context.WithTimeout(context.Background(), tokenTimeout)
		defer cancel()
		tok, err := c.GetToken(ctx)
		if err != nil && onErr != nil {
			onErr(err)
		}
		return username, tok
	}
}
