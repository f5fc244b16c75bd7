package jwt

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/patrickmn/go-cache"
	"gopkg.in/square/go-jose.v2"

	"tapandstamp/utilities"
)

// APNs rejects provider tokens older than an hour; refresh ahead of that.
const (
	TokenRefreshAfter = 50 * time.Minute
	tokenMaxAge       = time.Hour
)

type apnsClaims struct {
	jwt.StandardClaims
}

type CachedToken struct {
	Token    string
	IssuedAt time.Time
}

// TokenCache stores provider tokens keyed by team and key id.
type TokenCache interface {
	Get(key string) (CachedToken, bool)
	Set(key string, token CachedToken)
}

type memoryTokenCache struct {
	store *cache.Cache
}

func NewTokenCache() TokenCache {
	return &memoryTokenCache{store: cache.New(tokenMaxAge, 10*time.Minute)}
}

func (c *memoryTokenCache) Get(key string) (CachedToken, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return CachedToken{}, false
	}
	token, ok := v.(CachedToken)
	return token, ok
}

func (c *memoryTokenCache) Set(key string, token CachedToken) {
	c.store.Set(key, token, cache.DefaultExpiration)
}

type TokenProvider struct {
	key    *ecdsa.PrivateKey
	keyID  string
	teamID string
	cache  TokenCache
	now    func() time.Time
}

// LoadSigningKey reads an APNs auth key (.p8, PKCS#8 PEM) from disk unless keyData is given.
func LoadSigningKey(keyPath string, keyData []byte) (*ecdsa.PrivateKey, error) {
	if len(keyData) == 0 {
		var err error
		if keyData, err = os.ReadFile(keyPath); err != nil {
			return nil, fmt.Errorf("reading apns key: %w", err)
		}
	}

	key, err := jwt.ParseECPrivateKeyFromPEM(keyData)
	if err != nil {
		return nil, fmt.Errorf("parsing apns key: %w", err)
	}
	return key, nil
}

func NewTokenProvider(key *ecdsa.PrivateKey, keyID, teamID string, tokenCache TokenCache) *TokenProvider {
	if tokenCache == nil {
		tokenCache = NewTokenCache()
	}
	return &TokenProvider{key: key, keyID: keyID, teamID: teamID, cache: tokenCache, now: time.Now}
}

// WithClock replaces the provider's time source.
func (p *TokenProvider) WithClock(now func() time.Time) *TokenProvider {
	p.now = now
	return p
}

// Token returns the cached provider token until TokenRefreshAfter has elapsed since it was issued.
func (p *TokenProvider) Token() (string, error) {
	log := utilities.NewLogger("TokenProvider.Token")

	now := p.now()
	cacheKey := p.teamID + ":" + p.keyID
	if cached, ok := p.cache.Get(cacheKey); ok && now.Sub(cached.IssuedAt) < TokenRefreshAfter {
		return cached.Token, nil
	}

	token, err := p.sign(now)
	if err != nil {
		return "", err
	}

	p.cache.Set(cacheKey, CachedToken{Token: token, IssuedAt: now})
	log.Debugf("issued apns provider token for key %s", p.keyID)

	return token, nil
}

func (p *TokenProvider) sign(issuedAt time.Time) (string, error) {
	claims := apnsClaims{
		jwt.StandardClaims{
			Issuer:   p.teamID,
			IssuedAt: issuedAt.Unix(),
		},
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	return signPayload(&jose.JSONWebKey{Key: p.key, KeyID: p.keyID, Algorithm: string(jose.ES256)}, payload)
}

func signPayload(key *jose.JSONWebKey, payload []byte) (jws string, err error) {
	signingKey := jose.SigningKey{Key: key, Algorithm: jose.ES256}

	signer, err := jose.NewSigner(signingKey, &jose.SignerOptions{})
	if err != nil {
		return "", err
	}

	signature, err := signer.Sign(payload)
	if err != nil {
		return "", err
	}

	return signature.CompactSerialize()
}
