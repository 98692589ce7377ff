// Package google provides OAuth2 authentication and token management for Google APIs.
//
// Tokens are stored per account as files in the user cache directory. The
// TokenProvider interface allows different token sources to be plugged in,
// keeping the mailbox connector independent of where tokens come from.
package google
