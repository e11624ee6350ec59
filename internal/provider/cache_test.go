package provider

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCacheTokenRoundTrip(t *testing.T) {
	c := NewCache(t.TempDir())

	tok, err := c.LoadToken("sso;eu-west-1;https://acme.awsapps.com/start")
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if tok != nil {
		t.Fatalf("LoadToken() on empty cache = %+v, want nil", tok)
	}

	want := &CachedToken{
		AccessToken:  "access-123",
		RefreshToken: "refresh-456",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Second),
		Region:       "eu-west-1",
		StartURL:     "https://acme.awsapps.com/start",
		Scopes:       []string{"sso:account:access"},
	}
	if err := c.SaveToken("sso;eu-west-1;https://acme.awsapps.com/start", want); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	got, err := c.LoadToken("sso;eu-west-1;https://acme.awsapps.com/start")
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if got == nil {
		t.Fatal("LoadToken() = nil after SaveToken()")
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Errorf("LoadToken() = %+v, want %+v", got, want)
	}
	if !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, want.ExpiresAt)
	}
}

func TestCacheFileNamesAndPermissions(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir)

	key := "sso;eu-west-1;https://secret-org.awsapps.com/start"
	if err := c.SaveToken(key, &CachedToken{AccessToken: "access"}); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("cache dir has %d entries, want 1", len(entries))
	}

	name := entries[0].Name()
	if strings.Contains(name, "secret-org") || strings.Contains(name, "awsapps") {
		t.Errorf("cache file name %q leaks the start URL", name)
	}

	info, err := os.Stat(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("cache file mode = %o, want 0600", perm)
	}
}

func TestCacheDeleteToken(t *testing.T) {
	c := NewCache(t.TempDir())

	if err := c.DeleteToken("absent"); err != nil {
		t.Errorf("DeleteToken() on absent key error = %v", err)
	}

	if err := c.SaveToken("key", &CachedToken{AccessToken: "access"}); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	if err := c.DeleteToken("key"); err != nil {
		t.Fatalf("DeleteToken() error = %v", err)
	}

	tok, err := c.LoadToken("key")
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if tok != nil {
		t.Errorf("LoadToken() after delete = %+v, want nil", tok)
	}
}

func TestCacheRegistrationExpiry(t *testing.T) {
	c := NewCache(t.TempDir())
	scopes := []string{"sso:account:access"}

	expired := &ClientRegistration{
		ClientID:     "client",
		ClientSecret: "secret",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	if err := c.SaveRegistration("eu-west-1", scopes, expired); err != nil {
		t.Fatalf("SaveRegistration() error = %v", err)
	}
	got, err := c.LoadRegistration("eu-west-1", scopes)
	if err != nil {
		t.Fatalf("LoadRegistration() error = %v", err)
	}
	if got != nil {
		t.Errorf("LoadRegistration() with expired registration = %+v, want nil", got)
	}

	valid := &ClientRegistration{
		ClientID:     "client",
		ClientSecret: "secret",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if err := c.SaveRegistration("eu-west-1", scopes, valid); err != nil {
		t.Fatalf("SaveRegistration() error = %v", err)
	}
	got, err = c.LoadRegistration("eu-west-1", scopes)
	if err != nil {
		t.Fatalf("LoadRegistration() error = %v", err)
	}
	if got == nil || got.ClientID != "client" {
		t.Errorf("LoadRegistration() = %+v, want client id %q", got, "client")
	}
}

func TestCacheRegistrationKeyedByScopes(t *testing.T) {
	c := NewCache(t.TempDir())

	a := &ClientRegistration{ClientID: "a", ExpiresAt: time.Now().Add(time.Hour)}
	b := &ClientRegistration{ClientID: "b", ExpiresAt: time.Now().Add(time.Hour)}

	if err := c.SaveRegistration("eu-west-1", []string{"sso:account:access"}, a); err != nil {
		t.Fatalf("SaveRegistration() error = %v", err)
	}
	if err := c.SaveRegistration("eu-west-1", []string{"sso:account:access", "codewhisperer:completions"}, b); err != nil {
		t.Fatalf("SaveRegistration() error = %v", err)
	}

	got, err := c.LoadRegistration("eu-west-1", []string{"sso:account:access"})
	if err != nil {
		t.Fatalf("LoadRegistration() error = %v", err)
	}
	if got == nil || got.ClientID != "a" {
		t.Errorf("LoadRegistration() = %+v, want client id %q", got, "a")
	}
}

func TestCachedTokenExpired(t *testing.T) {
	tests := []struct {
		name   string
		tok    CachedToken
		margin time.Duration
		want   bool
	}{
		{"valid", CachedToken{ExpiresAt: time.Now().Add(time.Hour)}, tokenExpiryMargin, false},
		{"expired", CachedToken{ExpiresAt: time.Now().Add(-time.Minute)}, tokenExpiryMargin, true},
		{"within margin", CachedToken{ExpiresAt: time.Now().Add(10 * time.Second)}, tokenExpiryMargin, true},
		{"no expiry", CachedToken{}, tokenExpiryMargin, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tok.Expired(tt.margin); got != tt.want {
				t.Errorf("Expired(%v) = %v, want %v", tt.margin, got, tt.want)
			}
		})
	}
}

func TestCachedTokenOAuth2Token(t *testing.T) {
	tok := &CachedToken{AccessToken: "access", ExpiresAt: time.Now().Add(time.Hour)}

	got := tok.OAuth2Token()
	if got.AccessToken != "access" {
		t.Errorf("AccessToken = %q, want %q", got.AccessToken, "access")
	}
	if got.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want %q when unset", got.TokenType, "Bearer")
	}
}
