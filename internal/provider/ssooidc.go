package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc"
	oidctypes "github.com/aws/aws-sdk-go-v2/service/ssooidc/types"
	"github.com/aws/smithy-go"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"ssohub/internal/connection"
	"ssohub/internal/events"
	"ssohub/pkg/logging"
)

// clientName is sent on OIDC client registration.
const clientName = "ssohub"

// defaultPollInterval is used when device authorization does not specify
// one.
const defaultPollInterval = 5 * time.Second

// oidcAPI is the subset of the SSO-OIDC client used by the device flow.
type oidcAPI interface {
	RegisterClient(ctx context.Context, params *ssooidc.RegisterClientInput, optFns ...func(*ssooidc.Options)) (*ssooidc.RegisterClientOutput, error)
	StartDeviceAuthorization(ctx context.Context, params *ssooidc.StartDeviceAuthorizationInput, optFns ...func(*ssooidc.Options)) (*ssooidc.StartDeviceAuthorizationOutput, error)
	CreateToken(ctx context.Context, params *ssooidc.CreateTokenInput, optFns ...func(*ssooidc.Options)) (*ssooidc.CreateTokenOutput, error)
}

// ssoAPI is the subset of the SSO portal client used on invalidation.
type ssoAPI interface {
	Logout(ctx context.Context, params *sso.LogoutInput, optFns ...func(*sso.Options)) (*sso.LogoutOutput, error)
}

// DeviceFlowProvider implements TokenProvider over the AWS SSO-OIDC
// device-authorization grant. One instance serves one connection identity
// and scope set.
type DeviceFlowProvider struct {
	id       string
	startURL string
	region   string
	scopes   []string

	oidc  oidcAPI
	sso   ssoAPI
	cache *Cache

	notify      io.Writer
	openBrowser func(string) error

	sf    singleflight.Group
	sleep func(ctx context.Context, d time.Duration) error
}

func (p *DeviceFlowProvider) ID() string { return p.id }

func (p *DeviceFlowProvider) cacheKey() string {
	return p.id + "|" + strings.Join(p.scopes, " ")
}

// State derives the authorization state from the cached token. It never
// calls the identity provider.
func (p *DeviceFlowProvider) State() State {
	tok, err := p.cache.LoadToken(p.cacheKey())
	if err != nil || tok == nil {
		return StateNotAuthenticated
	}
	if !tok.Expired(tokenExpiryMargin) {
		return StateAuthorized
	}
	if tok.RefreshToken != "" {
		return StateNeedsRefresh
	}
	return StateNotAuthenticated
}

// ResolveToken returns a valid access token, performing a silent
// refresh-token exchange when the cached token expired. Concurrent
// refreshes for the same provider coalesce into one exchange.
func (p *DeviceFlowProvider) ResolveToken(ctx context.Context) (*oauth2.Token, error) {
	tok, err := p.cache.LoadToken(p.cacheKey())
	if err != nil {
		return nil, fmt.Errorf("reading token cache: %w", err)
	}
	if tok != nil && !tok.Expired(tokenExpiryMargin) {
		return tok.OAuth2Token(), nil
	}

	v, err, _ := p.sf.Do("refresh", func() (interface{}, error) {
		return p.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

func (p *DeviceFlowProvider) refresh(ctx context.Context) (*oauth2.Token, error) {
	tok, err := p.cache.LoadToken(p.cacheKey())
	if err != nil {
		return nil, fmt.Errorf("reading token cache: %w", err)
	}
	if tok != nil && !tok.Expired(tokenExpiryMargin) {
		// Another caller refreshed while we waited on the singleflight.
		return tok.OAuth2Token(), nil
	}
	if tok == nil || tok.RefreshToken == "" {
		return nil, ErrReauthRequired
	}

	reg, err := p.registration(ctx)
	if err != nil {
		return nil, err
	}

	out, err := p.oidc.CreateToken(ctx, &ssooidc.CreateTokenInput{
		ClientId:     aws.String(reg.ClientID),
		ClientSecret: aws.String(reg.ClientSecret),
		GrantType:    aws.String("refresh_token"),
		RefreshToken: aws.String(tok.RefreshToken),
	})
	if err != nil {
		if isInvalidGrant(err) {
			logging.Debug("Provider", "Refresh rejected for %s, reauthentication required", p.id)
			return nil, fmt.Errorf("refresh token rejected (%v): %w", err, ErrReauthRequired)
		}
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	stored, err := p.storeToken(out, tok.RefreshToken)
	if err != nil {
		return nil, err
	}
	logging.Debug("Provider", "Silently refreshed token for %s", p.id)
	return stored.OAuth2Token(), nil
}

// Reauthenticate runs the interactive device-authorization flow: it
// prints the verification URI and user code, opens the browser, and polls
// for token creation until the user approves, the authorization expires,
// or ctx is canceled.
func (p *DeviceFlowProvider) Reauthenticate(ctx context.Context) error {
	reg, err := p.registration(ctx)
	if err != nil {
		return err
	}

	auth, err := p.oidc.StartDeviceAuthorization(ctx, &ssooidc.StartDeviceAuthorizationInput{
		ClientId:     aws.String(reg.ClientID),
		ClientSecret: aws.String(reg.ClientSecret),
		StartUrl:     aws.String(p.startURL),
	})
	if err != nil {
		return fmt.Errorf("starting device authorization: %w", err)
	}

	verification := aws.ToString(auth.VerificationUriComplete)
	if verification == "" {
		verification = aws.ToString(auth.VerificationUri)
	}
	fmt.Fprintf(p.notify, "Confirm the code %s at %s\n", aws.ToString(auth.UserCode), verification)
	if err := p.openBrowser(verification); err != nil {
		logging.Warn("Provider", "Could not open browser: %v", err)
	}

	interval := time.Duration(auth.Interval) * time.Second
	if interval <= 0 {
		interval = defaultPollInterval
	}
	deadline := time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second)

	for {
		if err := p.sleep(ctx, interval); err != nil {
			return err
		}

		out, err := p.oidc.CreateToken(ctx, &ssooidc.CreateTokenInput{
			ClientId:     aws.String(reg.ClientID),
			ClientSecret: aws.String(reg.ClientSecret),
			DeviceCode:   auth.DeviceCode,
			GrantType:    aws.String("urn:ietf:params:oauth:grant-type:device_code"),
		})
		if err == nil {
			if _, err := p.storeToken(out, ""); err != nil {
				return err
			}
			logging.Info("Provider", "Authorized %s", p.id)
			return nil
		}

		var pending *oidctypes.AuthorizationPendingException
		var slowDown *oidctypes.SlowDownException
		var expired *oidctypes.ExpiredTokenException
		switch {
		case errors.As(err, &pending):
			// Keep polling.
		case errors.As(err, &slowDown):
			interval += defaultPollInterval
		case errors.As(err, &expired):
			return fmt.Errorf("device authorization expired before approval: %w", err)
		default:
			return fmt.Errorf("device authorization failed: %w", err)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("device authorization expired before approval")
		}
	}
}

// Invalidate discards the cached token and best-effort signs the token
// out of the SSO portal.
func (p *DeviceFlowProvider) Invalidate(ctx context.Context) {
	tok, _ := p.cache.LoadToken(p.cacheKey())
	if err := p.cache.DeleteToken(p.cacheKey()); err != nil {
		logging.Warn("Provider", "Could not remove cached token for %s: %v", p.id, err)
	}

	if tok != nil && tok.AccessToken != "" && !tok.Expired(0) && p.sso != nil {
		if _, err := p.sso.Logout(ctx, &sso.LogoutInput{AccessToken: aws.String(tok.AccessToken)}); err != nil {
			logging.Debug("Provider", "Portal logout for %s failed: %v", p.id, err)
		}
	}
	logging.Info("Provider", "Invalidated %s", p.id)
}

func (p *DeviceFlowProvider) registration(ctx context.Context) (*ClientRegistration, error) {
	reg, err := p.cache.LoadRegistration(p.region, p.scopes)
	if err != nil {
		return nil, fmt.Errorf("reading registration cache: %w", err)
	}
	if reg != nil {
		return reg, nil
	}

	out, err := p.oidc.RegisterClient(ctx, &ssooidc.RegisterClientInput{
		ClientName: aws.String(clientName),
		ClientType: aws.String("public"),
		Scopes:     p.scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("registering OIDC client: %w", err)
	}

	reg = &ClientRegistration{
		ClientID:     aws.ToString(out.ClientId),
		ClientSecret: aws.ToString(out.ClientSecret),
		ExpiresAt:    time.Unix(out.ClientSecretExpiresAt, 0),
	}
	if err := p.cache.SaveRegistration(p.region, p.scopes, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (p *DeviceFlowProvider) storeToken(out *ssooidc.CreateTokenOutput, previousRefresh string) (*CachedToken, error) {
	refresh := aws.ToString(out.RefreshToken)
	if refresh == "" {
		refresh = previousRefresh
	}
	tok := &CachedToken{
		AccessToken:  aws.ToString(out.AccessToken),
		RefreshToken: refresh,
		TokenType:    aws.ToString(out.TokenType),
		ExpiresAt:    time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
		Region:       p.region,
		StartURL:     p.startURL,
		Scopes:       p.scopes,
	}
	if err := p.cache.SaveToken(p.cacheKey(), tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func isInvalidGrant(err error) bool {
	var invalid *oidctypes.InvalidGrantException
	var expired *oidctypes.ExpiredTokenException
	var denied *oidctypes.AccessDeniedException
	if errors.As(err, &invalid) || errors.As(err, &expired) || errors.As(err, &denied) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidGrantException", "ExpiredTokenException", "AccessDeniedException":
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SSOFactory builds and caches DeviceFlowProviders, one live instance per
// connection identity and scope set. It also implements
// connection.CredentialResolver and reacts to provider-invalidated
// events.
type SSOFactory struct {
	mu        sync.Mutex
	cache     *Cache
	providers map[string]*DeviceFlowProvider

	notify      io.Writer
	openBrowser func(string) error
	newClients  func(ctx context.Context, region string) (oidcAPI, ssoAPI, error)

	unsubscribe func()
}

// NewSSOFactory creates a factory caching credentials under cacheDir.
// When bus is non-nil the factory subscribes to provider-invalidated
// events; providers whose ID does not match an event simply ignore it.
func NewSSOFactory(cacheDir string, bus *events.Bus) *SSOFactory {
	f := &SSOFactory{
		cache:       NewCache(cacheDir),
		providers:   make(map[string]*DeviceFlowProvider),
		notify:      os.Stderr,
		openBrowser: OpenBrowser,
		newClients:  defaultClients,
	}
	if bus != nil {
		f.unsubscribe = bus.SubscribeProviderInvalidated(f.handleInvalidated)
	}
	return f
}

func defaultClients(ctx context.Context, region string) (oidcAPI, ssoAPI, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, nil, fmt.Errorf("loading SDK config: %w", err)
	}
	return ssooidc.NewFromConfig(cfg), sso.NewFromConfig(cfg), nil
}

func providerKey(conn connection.Connection) string {
	return conn.ID() + "|" + strings.Join(conn.Scopes(), " ")
}

// ProviderFor returns the provider serving conn's identity and scope set,
// constructing it on first use.
func (f *SSOFactory) ProviderFor(conn connection.Connection) (TokenProvider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := providerKey(conn)
	if p, ok := f.providers[key]; ok {
		return p, nil
	}

	oidc, ssoc, err := f.newClients(context.Background(), conn.Region())
	if err != nil {
		return nil, err
	}

	p := &DeviceFlowProvider{
		id:          conn.ID(),
		startURL:    conn.StartURL(),
		region:      conn.Region(),
		scopes:      conn.Scopes(),
		oidc:        oidc,
		sso:         ssoc,
		cache:       f.cache,
		notify:      f.notify,
		openBrowser: f.openBrowser,
		sleep:       sleepCtx,
	}
	f.providers[key] = p
	return p, nil
}

// ResolveCredentialSettings implements connection.CredentialResolver.
func (f *SSOFactory) ResolveCredentialSettings(ctx context.Context, conn connection.Connection) (*connection.CredentialSettings, error) {
	p, err := f.ProviderFor(conn)
	if err != nil {
		return nil, err
	}
	return connection.NewCredentialSettings(p.ID(), tokenSourceFunc(p.ResolveToken)), nil
}

func (f *SSOFactory) handleInvalidated(ev events.ProviderInvalidated) {
	f.mu.Lock()
	matching := make([]*DeviceFlowProvider, 0, 1)
	for _, p := range f.providers {
		if p.ID() == ev.ProviderID {
			matching = append(matching, p)
		}
	}
	f.mu.Unlock()

	for _, p := range matching {
		p.Invalidate(context.Background())
	}
}

// Close removes the factory's event subscription.
func (f *SSOFactory) Close() {
	if f.unsubscribe != nil {
		f.unsubscribe()
		f.unsubscribe = nil
	}
}

type tokenSourceFunc func(ctx context.Context) (*oauth2.Token, error)

func (fn tokenSourceFunc) Token(ctx context.Context) (*oauth2.Token, error) {
	return fn(ctx)
}
