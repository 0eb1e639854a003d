package publish

import (
	"fmt"

	"github.com/bitrise-io/go-utils/v2/env"
)

// Environment keys consumed by NewConfigFromEnv.
const (
	PageIDEnvKey      = "FACEBOOK_PAGE_ID"
	AccessTokenEnvKey = "FACEBOOK_PAGE_TOKEN"
	BaseURLEnvKey     = "FACEBOOK_GRAPH_API_BASE_URL"
)

// Secret is a string whose value must not appear in logs.
type Secret string

// String implements fmt.Stringer and redacts the value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "*****"
}

// Config holds the credentials of one page publisher. One Config per page:
// multiple posters with different configs can coexist in a process.
type Config struct {
	// PageID is the platform page the pipeline publishes to.
	PageID string
	// AccessToken is the page access token. Token acquisition is out of
	// scope; the token is expected to be provisioned externally.
	AccessToken Secret
	// APIBaseURL overrides the Graph API endpoint. Empty selects the
	// production endpoint.
	APIBaseURL string
	// ProjectRoot anchors tracking-store keys: published asset paths under
	// this directory are recorded relative to it. Empty disables
	// relativization.
	ProjectRoot string
}

func (c Config) validate() error {
	if c.PageID == "" || c.AccessToken == "" {
		return fmt.Errorf("credentials not properly configured: page ID and access token are required")
	}
	return nil
}

// NewConfigFromEnv builds a Config from the process environment. Both the
// page ID and the access token must be present.
func NewConfigFromEnv(envRepo env.Repository) (Config, error) {
	pageID := envRepo.Get(PageIDEnvKey)
	if pageID == "" {
		return Config{}, fmt.Errorf("the secret '%s' is not defined", PageIDEnvKey)
	}
	accessToken := envRepo.Get(AccessTokenEnvKey)
	if accessToken == "" {
		return Config{}, fmt.Errorf("the secret '%s' is not defined", AccessTokenEnvKey)
	}

	return Config{
		PageID:      pageID,
		AccessToken: Secret(accessToken),
		APIBaseURL:  envRepo.Get(BaseURLEnvKey),
	}, nil
}
