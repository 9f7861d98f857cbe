package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/secureauthx/secureauthx/internal"
)

// SigningMethod names the algorithm used to sign and verify tokens.
//
// SigningMethod instances are intended to be configured during initialization and then treated as immutable.
type SigningMethod string

const (
	// MethodEd25519 signs with an Ed25519 key pair (EdDSA).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with a shared HMAC secret. This is the default.
	MethodHS256 SigningMethod = "hs256"
	// MethodHS384 signs with a shared HMAC secret.
	MethodHS384 SigningMethod = "hs384"
	// MethodHS512 signs with a shared HMAC secret.
	MethodHS512 SigningMethod = "hs512"
)

const (
	minHMACSecretBytes = 16
	maxLeeway          = 2 * time.Minute
)

var (
	// ErrInvalidToken covers bad signatures, wrong algorithm or issuer, missing
	// required claims and kind mismatches.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned once exp has passed (allowing for Leeway).
	ErrExpiredToken = errors.New("token expired")
)

// Config defines signing material, issuer and lifetimes for both token kinds.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Issuer        string
	SigningMethod SigningMethod
	// Secret is the HMAC key for the hs* methods.
	Secret []byte
	// PrivateKey and PublicKey are raw or PEM encoded Ed25519 keys.
	PrivateKey []byte
	PublicKey  []byte
	KeyID      string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager encodes and decodes access and refresh tokens.
//
// Manager instances are intended to be configured during initialization and then treated as immutable.
type Manager struct {
	config Config
	method jwt.SigningMethod
	parser *jwt.Parser
}

// NewManager validates cfg and returns a Manager. It fails when the issuer,
// TTLs, leeway or key material are invalid.
func NewManager(cfg Config) (*Manager, error) {
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if cfg.AccessTTL < time.Second || cfg.RefreshTTL < time.Second {
		return nil, errors.New("invalid TTL configuration")
	}
	// NumericDate has second precision; whole seconds keep exp-iat equal to the TTL.
	if cfg.AccessTTL%time.Second != 0 || cfg.RefreshTTL%time.Second != 0 {
		return nil, errors.New("TTLs must be whole seconds")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	cfg.SigningMethod = SigningMethod(strings.ToLower(string(cfg.SigningMethod)))
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	switch cfg.SigningMethod {
	case MethodHS256, MethodHS384, MethodHS512:
		if len(cfg.Secret) < minHMACSecretBytes {
			return nil, fmt.Errorf("%s requires a secret of at least %d bytes", cfg.SigningMethod, minHMACSecretBytes)
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key")
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	m := &Manager{config: cfg}
	m.method = m.getMethod()

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	m.parser = jwt.NewParser(options...)

	return m, nil
}

// AccessTTL returns the configured access token lifetime.
func (j *Manager) AccessTTL() time.Duration { return j.config.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (j *Manager) RefreshTTL() time.Duration { return j.config.RefreshTTL }

// IssueAccess signs {sub, adm, typ=access, iss, iat, exp} where exp-iat is exactly AccessTTL.
// IssueAccess may return an error when signing fails (for example a verify-only Ed25519 manager).
func (j *Manager) IssueAccess(subject string, admin bool) (string, *AccessClaims, error) {
	if subject == "" {
		return "", nil, errors.New("subject is required")
	}
	now := j.now()
	exp := now.Add(j.config.AccessTTL)

	claims := wireClaims{
		Type:  string(KindAccess),
		Admin: &admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := j.sign(claims)
	if err != nil {
		return "", nil, err
	}

	return token, &AccessClaims{
		Sub:       subject,
		Admin:     admin,
		Issuer:    j.config.Issuer,
		IssuedAt:  now,
		ExpiresAt: exp,
	}, nil
}

// IssueRefresh generates a fresh random secret, embeds it as jti and returns the
// derived TokenID in the claims. exp-iat is exactly RefreshTTL.
// IssueRefresh may return an error when the random source or signing fails.
func (j *Manager) IssueRefresh(subject string) (string, *RefreshClaims, error) {
	if subject == "" {
		return "", nil, errors.New("subject is required")
	}
	secret, err := internal.NewRefreshSecret()
	if err != nil {
		return "", nil, err
	}
	now := j.now()
	exp := now.Add(j.config.RefreshTTL)

	claims := wireClaims{
		Type: string(KindRefresh),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.config.Issuer,
			ID:        secret.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := j.sign(claims)
	if err != nil {
		return "", nil, err
	}

	return token, &RefreshClaims{
		Sub:       subject,
		Issuer:    j.config.Issuer,
		Secret:    secret.String(),
		TokenID:   secret.TokenID(),
		IssuedAt:  now,
		ExpiresAt: exp,
	}, nil
}

// Parse verifies signature, algorithm, issuer, iat and exp, then requires sub and
// typ plus the kind-specific claim (adm for access, jti for refresh). Claim sets
// that carry the other kind's specific claim are rejected.
// Parse returns ErrExpiredToken or an error wrapping ErrInvalidToken on failure.
func (j *Manager) Parse(tokenStr string) (Claims, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	var wire wireClaims
	token, err := j.parser.ParseWithClaims(tokenStr, &wire, j.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if wire.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	if wire.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing iat", ErrInvalidToken)
	}
	issuedAt := wire.IssuedAt.Time
	expiresAt := wire.ExpiresAt.Time

	switch Kind(wire.Type) {
	case KindAccess:
		if wire.Admin == nil {
			return nil, fmt.Errorf("%w: missing adm", ErrInvalidToken)
		}
		if wire.ID != "" {
			return nil, fmt.Errorf("%w: unexpected jti on access token", ErrInvalidToken)
		}
		return &AccessClaims{
			Sub:       wire.Subject,
			Admin:     *wire.Admin,
			Issuer:    wire.Issuer,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		}, nil
	case KindRefresh:
		if wire.ID == "" {
			return nil, fmt.Errorf("%w: missing jti", ErrInvalidToken)
		}
		if wire.Admin != nil {
			return nil, fmt.Errorf("%w: unexpected adm on refresh token", ErrInvalidToken)
		}
		secret, err := internal.ParseRefreshSecret(wire.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed jti", ErrInvalidToken)
		}
		return &RefreshClaims{
			Sub:       wire.Subject,
			Issuer:    wire.Issuer,
			Secret:    wire.ID,
			TokenID:   secret.TokenID(),
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		}, nil
	case "":
		return nil, fmt.Errorf("%w: missing typ", ErrInvalidToken)
	default:
		return nil, fmt.Errorf("%w: unknown typ %q", ErrInvalidToken, wire.Type)
	}
}

// ParseAccess parses tokenStr and requires the access kind.
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims, err := j.Parse(tokenStr)
	if err != nil {
		return nil, err
	}
	access, ok := claims.(*AccessClaims)
	if !ok {
		return nil, fmt.Errorf("%w: expected access token", ErrInvalidToken)
	}
	return access, nil
}

// ParseRefresh parses tokenStr and requires the refresh kind.
func (j *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims, err := j.Parse(tokenStr)
	if err != nil {
		return nil, err
	}
	refresh, ok := claims.(*RefreshClaims)
	if !ok {
		return nil, fmt.Errorf("%w: expected refresh token", ErrInvalidToken)
	}
	return refresh, nil
}

func (j *Manager) now() time.Time {
	return j.config.Now().UTC().Truncate(time.Second)
}

func (j *Manager) sign(claims wireClaims) (string, error) {
	token := jwt.NewWithClaims(j.method, claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}

	signKey, err := j.getSignKey()
	if err != nil {
		return "", err
	}

	return token.SignedString(signKey)
}

func (j *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != j.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	if j.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid != j.config.KeyID {
			return nil, errors.New("unknown kid")
		}
	}
	return j.getVerifyKey()
}

func (j *Manager) getMethod() jwt.SigningMethod {
	switch j.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	case MethodHS384:
		return jwt.SigningMethodHS384
	case MethodHS512:
		return jwt.SigningMethodHS512
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (j *Manager) getSignKey() (interface{}, error) {
	if j.config.SigningMethod == MethodEd25519 {
		if len(j.config.PrivateKey) == 0 {
			return nil, errors.New("ed25519 manager has no private key")
		}
		return parseEdPrivateKey(j.config.PrivateKey)
	}
	return j.config.Secret, nil
}

func (j *Manager) getVerifyKey() (interface{}, error) {
	if j.config.SigningMethod == MethodEd25519 {
		return parseEdPublicKey(j.config.PublicKey)
	}
	return j.config.Secret, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
