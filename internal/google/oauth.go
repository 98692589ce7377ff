package google

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// validateAccountName checks that an account name is safe to use as part of
// a token file name
func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	for _, r := range account {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return fmt.Errorf("account name %q contains invalid character %q (use letters, digits, hyphen, underscore)", account, r)
		}
	}
	return nil
}

// getTokenFilePath returns the token file path for an account
func getTokenFilePath(account string) string {
	cacheDir := filepath.Join(userCacheDir(), "mailtriage")
	return filepath.Join(cacheDir, "google-"+account+".token")
}

// MigrateDefaultToken moves a legacy single-account token file
// ("google.token") to the per-account naming scheme. It is idempotent and
// safe to call at startup.
func MigrateDefaultToken() error {
	cacheDir := filepath.Join(userCacheDir(), "mailtriage")
	oldFile := filepath.Join(cacheDir, "google.token")
	newFile := getTokenFilePath("default")

	if _, err := os.Stat(oldFile); os.IsNotExist(err) {
		return nil
	}
	if _, err := os.Stat(newFile); err == nil {
		// Both exist; keep the per-account file and drop the legacy one
		if err := os.Remove(oldFile); err != nil {
			return fmt.Errorf("failed to remove legacy token file: %w", err)
		}
		return nil
	}

	if err := os.Rename(oldFile, newFile); err != nil {
		return fmt.Errorf("failed to migrate token file: %w", err)
	}
	return nil
}

// HasToken checks if a valid OAuth token exists for the default account
func HasToken() bool {
	return HasTokenForAccount("default")
}

// HasTokenForAccount checks if a valid OAuth token exists for the specified account
func HasTokenForAccount(account string) bool {
	if err := validateAccountName(account); err != nil {
		return false
	}
	_, err := os.ReadFile(getTokenFilePath(account))
	return err == nil
}

// GetAuthenticationErrorMessage returns a user-facing message explaining how
// to authenticate the given account
func GetAuthenticationErrorMessage(account string) string {
	return fmt.Sprintf("No OAuth token found for account %q. Run 'mailtriage auth --account %s' and follow the prompts to authorize Gmail access.", account, account)
}

// GetAuthURL returns the OAuth URL for user authorization
func GetAuthURL() string {
	conf := GetOAuthConfig()
	return conf.AuthCodeURL("state")
}

// SaveToken exchanges an authorization code for tokens and saves them for
// the default account
func SaveToken(ctx context.Context, authCode string) error {
	return SaveTokenForAccount(ctx, "default", authCode)
}

// SaveTokenForAccount exchanges an authorization code for tokens and saves
// them under the specified account name
func SaveTokenForAccount(ctx context.Context, account, authCode string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}

	conf := GetOAuthConfig()

	t, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	file := getTokenFilePath(account)
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tokenData := t.AccessToken + " " + t.RefreshToken
	if err := os.WriteFile(file, []byte(tokenData), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

// GetOAuthConfig returns the OAuth2 configuration for the Google services
// the triage pipeline talks to
func GetOAuthConfig() *oauth2.Config {
	const OOB = "urn:ietf:wg:oauth:2.0:oob"
	return &oauth2.Config{
		ClientID:     os.Getenv("MAILTRIAGE_GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("MAILTRIAGE_GOOGLE_CLIENT_SECRET"),
		Endpoint:     google.Endpoint,
		RedirectURL:  OOB,
		Scopes:       DefaultOAuthScopes,
	}
}

// GetTokenSource returns an OAuth2 token source for the default account's
// stored token
func GetTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	return GetTokenSourceForAccount(ctx, "default")
}

// GetTokenSourceForAccount returns an OAuth2 token source for the specified
// account's stored token. Returns an error if no valid token exists.
func GetTokenSourceForAccount(ctx context.Context, account string) (oauth2.TokenSource, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}

	conf := GetOAuthConfig()

	slurp, err := os.ReadFile(getTokenFilePath(account))
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %q", account)
	}

	f := strings.Fields(strings.TrimSpace(string(slurp)))
	if len(f) != 2 {
		return nil, fmt.Errorf("invalid token format")
	}

	ts := conf.TokenSource(ctx, &oauth2.Token{
		AccessToken:  f[0],
		TokenType:    "Bearer",
		RefreshToken: f[1],
		Expiry:       time.Unix(1, 0),
	})

	// Validate the token
	if _, err := ts.Token(); err != nil {
		log.Printf("Cached token invalid: %v", err)
		return nil, fmt.Errorf("cached token is invalid: %w", err)
	}

	return ts, nil
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		panic("No Windows TEMP or TMP environment variables found")
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
