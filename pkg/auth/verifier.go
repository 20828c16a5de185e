package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/abgdnv/stockbook/pkg/config"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// clockSkew tolerates small clock differences between the IdP and this service.
const clockSkew = 30 * time.Second

// realmAccessClaim holds the Keycloak realm roles of a token.
const realmAccessClaim = "realm_access"

var (
	ErrNoSubject   = errors.New("token has no sub claim")
	ErrMissingRole = errors.New("token lacks the required role")
)

// Principal is the authenticated caller behind a bearer token.
type Principal struct {
	Subject string
	Roles   []string
}

func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

type Verifier interface {
	Verify(ctx context.Context, tokenString string) (Principal, error)
}

// JWTVerifier checks bearer tokens issued for one client of one issuer.
type JWTVerifier struct {
	keys         *keyCache
	issuer       string
	clientID     string
	requiredRole string
}

// NewJWTVerifier creates a verifier and fetches the key set once so a misconfigured IdP fails startup.
func NewJWTVerifier(ctx context.Context, cfg config.IdP) (*JWTVerifier, error) {
	v := &JWTVerifier{
		keys:         &keyCache{url: cfg.JwksURL, minInterval: cfg.MinInterval},
		issuer:       cfg.Issuer,
		clientID:     cfg.ClientID,
		requiredRole: cfg.Role,
	}
	if _, err := v.keys.get(ctx); err != nil {
		return nil, fmt.Errorf("initial JWKS fetch failed: %w", err)
	}
	return v, nil
}

// Verify checks signature, expiry, issuer and authorized party, then the required role when one is configured.
func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (Principal, error) {
	set, err := v.keys.get(ctx)
	if err != nil {
		return Principal{}, fmt.Errorf("failed to get keyset for verification: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(clockSkew),
		jwt.WithIssuer(v.issuer),
		jwt.WithClaimValue("azp", v.clientID),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("failed to verify token: %w", err)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return Principal{}, ErrNoSubject
	}
	p := Principal{Subject: subject, Roles: realmRoles(token)}
	if v.requiredRole != "" && !p.HasRole(v.requiredRole) {
		return Principal{}, fmt.Errorf("%w: %s", ErrMissingRole, v.requiredRole)
	}
	return p, nil
}

// realmRoles reads realm_access.roles; tokens without it simply carry no roles.
func realmRoles(token jwt.Token) []string {
	var access map[string]any
	if err := token.Get(realmAccessClaim, &access); err != nil {
		return nil
	}
	raw, _ := access["roles"].([]any)
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

// keyCache holds the IdP key set and refetches it at most once per minInterval.
type keyCache struct {
	mu          sync.RWMutex
	url         string
	minInterval time.Duration
	set         jwk.Set
	fetchedAt   time.Time
}

func (c *keyCache) fresh() (jwk.Set, bool) {
	if c.set != nil && time.Since(c.fetchedAt) < c.minInterval {
		return c.set, true
	}
	return nil, false
}

func (c *keyCache) get(ctx context.Context) (jwk.Set, error) {
	c.mu.RLock()
	set, ok := c.fresh()
	c.mu.RUnlock()
	if ok {
		return set, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if set, ok := c.fresh(); ok {
		return set, nil
	}
	set, err := jwk.Fetch(ctx, c.url)
	if err != nil {
		// a stale key set keeps the API usable while the IdP is down
		if c.set != nil {
			return c.set, nil
		}
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", c.url, err)
	}
	c.set = set
	c.fetchedAt = time.Now()
	return set, nil
}
