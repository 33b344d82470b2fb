package auth

import (
	"fmt"

	"golang.org/x/oauth2/clientcredentials"
)

// Conf represents the configuration needed for authentication.
// It includes the client ID, client secret, and the token URL.
type Conf struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURL      string   `json:"auth_url"`
	Scopes       []string `json:"scopes"`
}

// Validate checks the mandatory fields.
func (c Conf) Validate() error {
	if c.ClientID == "" || c.AuthURL == "" {
		return fmt.Errorf("oauth2: client_id and auth_url are required")
	}
	return nil
}

func (c *Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.AuthURL,
		Scopes:       c.Scopes,
	}
}
