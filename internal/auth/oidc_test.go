package auth

import (
	"testing"
	"time"

	"github.com/orangehats/orangehats/internal/config"
)

func TestNewToken(t *testing.T) {
	a, err := newToken()
	if err != nil {
		t.Fatalf("newToken() error = %v", err)
	}
	b, err := newToken()
	if err != nil {
		t.Fatalf("newToken() error = %v", err)
	}
	if a == b {
		t.Error("newToken() returned duplicate values")
	}
	// 32 bytes raw base64 = 43 chars
	if len(a) != 43 {
		t.Errorf("newToken() length = %d, want 43", len(a))
	}
}

func testProvider(groups ...string) *OIDCProvider {
	return &OIDCProvider{
		config: &config.OIDCConfig{
			Enabled:       true,
			ClientID:      "test-client",
			ProviderURL:   "https://id.example.com",
			AllowedGroups: groups,
		},
		states: make(map[string]time.Time),
		now:    time.Now,
	}
}

func TestOIDCStateSingleUse(t *testing.T) {
	p := testProvider()

	url, state, err := p.AuthCodeURL()
	if err != nil {
		t.Fatalf("AuthCodeURL() error = %v", err)
	}
	if url == "" || state == "" {
		t.Fatal("AuthCodeURL() returned empty values")
	}

	if !p.consumeState(state) {
		t.Error("issued state was rejected")
	}
	if p.consumeState(state) {
		t.Error("state was accepted twice")
	}
	if p.consumeState("never-issued") {
		t.Error("unknown state was accepted")
	}
}

func TestOIDCStateExpires(t *testing.T) {
	p := testProvider()
	start := time.Now()
	p.now = func() time.Time { return start }

	_, state, err := p.AuthCodeURL()
	if err != nil {
		t.Fatalf("AuthCodeURL() error = %v", err)
	}

	p.now = func() time.Time { return start.Add(stateTTL + time.Second) }
	if p.consumeState(state) {
		t.Error("expired state was accepted")
	}

	_, _, _ = p.AuthCodeURL()
	if len(p.states) != 1 {
		t.Errorf("states = %d after prune, want 1", len(p.states))
	}
}

func TestOIDCGroupFilter(t *testing.T) {
	if !testProvider().groupAllowed(nil) {
		t.Error("no group restriction should allow everyone")
	}

	p := testProvider("security")
	if p.groupAllowed([]string{"marketing"}) {
		t.Error("user outside allowed groups was accepted")
	}
	if !p.groupAllowed([]string{"marketing", "security"}) {
		t.Error("user in allowed group was rejected")
	}
}

func TestExternalUsername(t *testing.T) {
	if got := (&ExternalUser{Email: "a@example.com", Name: "A"}).Username(); got != "a@example.com" {
		t.Errorf("Username() = %q", got)
	}
	if got := (&ExternalUser{Name: "A"}).Username(); got != "A" {
		t.Errorf("Username() = %q", got)
	}
}
