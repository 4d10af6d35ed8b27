package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"

	"employeetraining/internal/domain"
)

const (
	DefaultBotOpenIDMetadataURL = "https://login.botframework.com/v1/.well-known/openidconfiguration"
	DefaultBotIssuer            = "https://api.botframework.com"

	defaultSigningKeyTTL = 24 * time.Hour
	// minKeyRefresh limits how often an unknown key id triggers a download.
	minKeyRefresh   = time.Minute
	botTokenLeeway  = 5 * time.Minute
	maxMetadataBody = 1 << 20
)

// BotFrameworkConfig configures verification of the tokens the Bot Connector sends with activities.
type BotFrameworkConfig struct {
	// AppID is the bot's app registration id and the required audience. Empty rejects every token.
	AppID             string
	OpenIDMetadataURL string
	Issuer            string
	HTTPClient        *http.Client
	KeyTTL            time.Duration
}

type botClaims struct {
	jwt.RegisteredClaims
	ServiceURL string `json:"serviceurl"`
}

type openIDMetadata struct {
	JWKSURI string `json:"jwks_uri"`
}

type jsonWebKeySet struct {
	Keys []jsonWebKey `json:"keys"`
}

type jsonWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type botFrameworkVerifier struct {
	appID       string
	metadataURL string
	client      *http.Client
	parser      *jwt.Parser
	keys        *cache.Cache
	keyTTL      time.Duration
	now         func() time.Time

	mu          sync.Mutex
	lastRefresh time.Time
}

// NewBotFrameworkVerifier returns a BotTokenVerifier for RS256 tokens signed with the keys
// listed by the Bot Framework OpenID metadata. Keys are cached for KeyTTL.
func NewBotFrameworkVerifier(cfg BotFrameworkConfig) domain.BotTokenVerifier {
	if cfg.OpenIDMetadataURL == "" {
		cfg.OpenIDMetadataURL = DefaultBotOpenIDMetadataURL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultBotIssuer
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.KeyTTL <= 0 {
		cfg.KeyTTL = defaultSigningKeyTTL
	}
	return &botFrameworkVerifier{
		appID:       cfg.AppID,
		metadataURL: cfg.OpenIDMetadataURL,
		client:      cfg.HTTPClient,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithAudience(cfg.AppID),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(botTokenLeeway),
		),
		keys:   cache.New(cfg.KeyTTL, 2*cfg.KeyTTL),
		keyTTL: cfg.KeyTTL,
		now:    time.Now,
	}
}

func (v *botFrameworkVerifier) VerifyBotToken(ctx context.Context, tokenString string) (*domain.BotClaims, error) {
	if v.appID == "" {
		return nil, errors.New("bot app id is not configured")
	}
	claims := &botClaims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no key id")
		}
		return v.signingKey(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("parse bot token: %w", err)
	}
	return &domain.BotClaims{ServiceURL: claims.ServiceURL}, nil
}

func (v *botFrameworkVerifier) signingKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := v.keys.Get(kid); ok {
		return key.(*rsa.PublicKey), nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if key, ok := v.keys.Get(kid); ok {
		return key.(*rsa.PublicKey), nil
	}
	if !v.lastRefresh.IsZero() && v.now().Sub(v.lastRefresh) < minKeyRefresh {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	v.lastRefresh = v.now()
	if err := v.refreshKeys(ctx); err != nil {
		return nil, err
	}
	if key, ok := v.keys.Get(kid); ok {
		return key.(*rsa.PublicKey), nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

func (v *botFrameworkVerifier) refreshKeys(ctx context.Context) error {
	var meta openIDMetadata
	if err := v.getJSON(ctx, v.metadataURL, &meta); err != nil {
		return fmt.Errorf("fetch openid metadata: %w", err)
	}
	if meta.JWKSURI == "" {
		return errors.New("openid metadata has no jwks_uri")
	}
	var set jsonWebKeySet
	if err := v.getJSON(ctx, meta.JWKSURI, &set); err != nil {
		return fmt.Errorf("fetch signing keys: %w", err)
	}
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		key, err := rsaPublicKey(k)
		if err != nil {
			continue
		}
		v.keys.Set(k.Kid, key, v.keyTTL)
	}
	return nil
}

func (v *botFrameworkVerifier) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, maxMetadataBody)).Decode(out)
}

func rsaPublicKey(k jsonWebKey) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(e)
	if len(n) == 0 || !exp.IsInt64() || exp.Int64() < 3 || exp.Int64() > 1<<31-1 {
		return nil, errors.New("invalid rsa key")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}
