package google

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/inboxcal/internal/instrumentation"
)

// cacheDirName is the directory under the user cache dir that holds tokens.
const cacheDirName = "inboxcal"

var accountNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validateAccountName rejects account names that could escape the token
// directory or produce surprising file names.
func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNameRe.MatchString(account) {
		return fmt.Errorf("account name %q may only contain letters, digits, hyphens and underscores", account)
	}
	return nil
}

// getTokenFilePath returns the token file path for an account.
func getTokenFilePath(account string) string {
	return filepath.Join(userCacheDir(), cacheDirName, "google-"+account+".token")
}

// HasTokenForAccount checks if a token file exists for the specified account.
func HasTokenForAccount(account string) bool {
	if err := validateAccountName(account); err != nil {
		return false
	}
	_, err := os.ReadFile(getTokenFilePath(account))
	return err == nil
}

// HasToken checks if a valid OAuth token exists for the default account.
func HasToken() bool {
	return HasTokenForAccount("default")
}

// GetOAuthConfig returns the OAuth2 configuration for all Google services.
// Client credentials come from the environment so no secret is baked into
// the binary.
func GetOAuthConfig() *oauth2.Config {
	const OOB = "urn:ietf:wg:oauth:2.0:oob"
	return &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_OAUTH_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET"),
		Endpoint:     google.Endpoint,
		RedirectURL:  OOB,
		Scopes:       DefaultOAuthScopes,
	}
}

// GetAuthURL returns the OAuth URL for user authorization.
func GetAuthURL() string {
	conf := GetOAuthConfig()
	return conf.AuthCodeURL("state", oauth2.AccessTypeOffline)
}

// SaveTokenForAccount exchanges an authorization code for tokens and saves
// them for the specified account.
func SaveTokenForAccount(ctx context.Context, account, authCode string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}

	conf := GetOAuthConfig()
	t, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	tokenFile := getTokenFilePath(account)
	if err := os.MkdirAll(filepath.Dir(tokenFile), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tokenData := t.AccessToken + " " + t.RefreshToken
	if err := os.WriteFile(tokenFile, []byte(tokenData), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

// SaveToken exchanges an authorization code and saves tokens for the
// default account.
func SaveToken(ctx context.Context, authCode string) error {
	return SaveTokenForAccount(ctx, "default", authCode)
}

// GetTokenSourceForAccount returns an OAuth2 token source backed by the
// stored token for the given account. Returns an error if no valid token
// exists. The stored access token is expired on purpose so validation
// forces a refresh, which is recorded on metrics when non-nil.
func GetTokenSourceForAccount(ctx context.Context, account string, metrics *instrumentation.Metrics) (oauth2.TokenSource, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}

	conf := GetOAuthConfig()

	slurp, err := os.ReadFile(getTokenFilePath(account))
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s", account)
	}

	f := strings.Fields(strings.TrimSpace(string(slurp)))
	if len(f) != 2 {
		return nil, fmt.Errorf("invalid token format for account %s", account)
	}

	ts := conf.TokenSource(ctx, &oauth2.Token{
		AccessToken:  f[0],
		TokenType:    "Bearer",
		RefreshToken: f[1],
		Expiry:       time.Unix(1, 0),
	})

	// Validate the token
	if _, err := ts.Token(); err != nil {
		metrics.RecordOAuthTokenRefresh(ctx, instrumentation.StatusError)
		return nil, fmt.Errorf("cached token for account %s is invalid: %w", account, err)
	}
	metrics.RecordOAuthTokenRefresh(ctx, instrumentation.StatusSuccess)

	return ts, nil
}

// GetTokenSource returns an OAuth2 token source for the default account.
func GetTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	return GetTokenSourceForAccount(ctx, "default", nil)
}

// GetHTTPClientForAccount returns an HTTP client configured with OAuth2
// authentication for the given account. The client is configured to use
// HTTP/1.1 to avoid HTTP/2 protocol errors.
func GetHTTPClientForAccount(ctx context.Context, account string, metrics *instrumentation.Metrics) (*http.Client, error) {
	ts, err := GetTokenSourceForAccount(ctx, account, metrics)
	if err != nil {
		return nil, err
	}

	client := oauth2.NewClient(ctx, ts)

	// Force HTTP/1.1 by disabling HTTP/2
	transport := client.Transport.(*oauth2.Transport)
	baseTransport := &http.Transport{
		ForceAttemptHTTP2: false,
	}
	transport.Base = baseTransport

	return client, nil
}

// GetHTTPClient returns an authenticated HTTP client for the default account.
func GetHTTPClient(ctx context.Context) (*http.Client, error) {
	return GetHTTPClientForAccount(ctx, "default", nil)
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		return windowsCacheDir(os.Getenv)
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

// windowsCacheDir resolves a usable cache location from the environment.
// A bare environment degrades to a path under the profile directory rather
// than failing; token reads against it surface as missing-token errors.
func windowsCacheDir(getenv func(string) string) string {
	for _, ev := range []string{"LocalAppData", "TEMP", "TMP"} {
		if v := getenv(ev); v != "" {
			return v
		}
	}
	return filepath.Join(getenv("HOMEDRIVE")+getenv("HOMEPATH"), "AppData", "Local")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
