package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// tokenExpiryMargin is applied when checking token expiration, covering
// clock skew and network latency.
const tokenExpiryMargin = 30 * time.Second

// ClientRegistration is a cached OIDC client registration.
type ClientRegistration struct {
	ClientID     string    `json:"clientId"`
	ClientSecret string    `json:"clientSecret"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired reports whether the registration can no longer be used.
func (r *ClientRegistration) Expired() bool {
	return time.Now().After(r.ExpiresAt)
}

// CachedToken is the at-rest form of an SSO bearer token.
type CachedToken struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	TokenType    string    `json:"tokenType"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Region       string    `json:"region"`
	StartURL     string    `json:"startUrl"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// Expired reports whether the access token is expired within margin.
func (t *CachedToken) Expired(margin time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(margin).After(t.ExpiresAt)
}

// OAuth2Token converts the cached token for use with golang.org/x/oauth2
// consumers.
func (t *CachedToken) OAuth2Token() *oauth2.Token {
	tokenType := t.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    tokenType,
		Expiry:       t.ExpiresAt,
	}
}

// Cache is the on-disk store for client registrations and tokens.
//
// Files are created with 0600 permissions in a 0700 directory. File names
// are SHA-256 digests of the cache key so start URLs never appear in
// directory listings. Token values are never logged.
type Cache struct {
	dir string
}

// NewCache creates a cache rooted at dir.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

func cacheFileName(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:]) + ".json"
}

func (c *Cache) read(name string, v interface{}) (bool, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parsing cache file: %w", err)
	}
	return true, nil
}

func (c *Cache) write(name string, v interface{}) error {
	if err := os.MkdirAll(c.dir, 0700); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, name), data, 0600); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// LoadRegistration returns the cached client registration for the given
// region and scope set, or nil when absent or expired.
func (c *Cache) LoadRegistration(region string, scopes []string) (*ClientRegistration, error) {
	var reg ClientRegistration
	ok, err := c.read(cacheFileName(append([]string{"registration", region}, scopes...)...), &reg)
	if err != nil || !ok {
		return nil, err
	}
	if reg.Expired() {
		return nil, nil
	}
	return &reg, nil
}

// SaveRegistration stores a client registration.
func (c *Cache) SaveRegistration(region string, scopes []string, reg *ClientRegistration) error {
	return c.write(cacheFileName(append([]string{"registration", region}, scopes...)...), reg)
}

// LoadToken returns the cached token for key, or nil when absent.
// Expiry is not checked here; callers decide between refresh and
// reauthentication.
func (c *Cache) LoadToken(key string) (*CachedToken, error) {
	var tok CachedToken
	ok, err := c.read(cacheFileName("token", key), &tok)
	if err != nil || !ok {
		return nil, err
	}
	return &tok, nil
}

// SaveToken stores a token under key.
func (c *Cache) SaveToken(key string, tok *CachedToken) error {
	return c.write(cacheFileName("token", key), tok)
}

// DeleteToken removes the token stored under key. Deleting an absent
// token is a no-op.
func (c *Cache) DeleteToken(key string) error {
	err := os.Remove(filepath.Join(c.dir, cacheFileName("token", key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
