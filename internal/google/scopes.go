package google

// DefaultOAuthScopes are the Google OAuth scopes required for mailbox triage.
// These scopes are used consistently across the application for OAuth
// configurations.
//
// The scopes provide access to:
//   - Gmail: read-only (triage never mutates the mailbox)
//   - OpenID Connect: user identity for multi-account token storage
var DefaultOAuthScopes = []string{
	// OpenID Connect scopes (required for user info)
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",

	// Gmail scope
	"https://www.googleapis.com/auth/gmail.readonly",
}
