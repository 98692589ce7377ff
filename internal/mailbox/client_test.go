package mailbox

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

// fakeTokenProvider hands out a fixed token for a known set of accounts.
type fakeTokenProvider struct {
	tokens map[string]*oauth2.Token
}

func (p *fakeTokenProvider) GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	token, ok := p.tokens[account]
	if !ok {
		return nil, fmt.Errorf("no token for account %q", account)
	}
	return token, nil
}

func (p *fakeTokenProvider) HasTokenForAccount(account string) bool {
	_, ok := p.tokens[account]
	return ok
}

func TestNewClientForAccountWithProvider(t *testing.T) {
	provider := &fakeTokenProvider{
		tokens: map[string]*oauth2.Token{
			"work": {AccessToken: "access", TokenType: "Bearer"},
		},
	}

	client, err := NewClientForAccountWithProvider(context.Background(), "work", provider)
	if err != nil {
		t.Fatalf("NewClientForAccountWithProvider() error = %v", err)
	}
	if got := client.Account(); got != "work" {
		t.Errorf("Account() = %q, want %q", got, "work")
	}
}

func TestNewClientForAccountWithProvider_NilProvider(t *testing.T) {
	_, err := NewClientForAccountWithProvider(context.Background(), "work", nil)
	if err == nil {
		t.Fatal("NewClientForAccountWithProvider() expected error for nil provider")
	}
	if !strings.Contains(err.Error(), "token provider cannot be nil") {
		t.Errorf("error = %q, want mention of nil token provider", err)
	}
}

func TestNewClientForAccountWithProvider_NoToken(t *testing.T) {
	provider := &fakeTokenProvider{tokens: map[string]*oauth2.Token{}}

	_, err := NewClientForAccountWithProvider(context.Background(), "work", provider)
	if err == nil {
		t.Fatal("NewClientForAccountWithProvider() expected error when provider has no token")
	}
	if !strings.Contains(err.Error(), "work") {
		t.Errorf("error = %q, want account name in message", err)
	}
}

func TestHasTokenForAccountWithProvider(t *testing.T) {
	provider := &fakeTokenProvider{
		tokens: map[string]*oauth2.Token{
			"work": {AccessToken: "access"},
		},
	}

	if !HasTokenForAccountWithProvider("work", provider) {
		t.Error("HasTokenForAccountWithProvider(work) = false, want true")
	}
	if HasTokenForAccountWithProvider("personal", provider) {
		t.Error("HasTokenForAccountWithProvider(personal) = true, want false")
	}
	if HasTokenForAccountWithProvider("work", nil) {
		t.Error("HasTokenForAccountWithProvider with nil provider = true, want false")
	}
}
