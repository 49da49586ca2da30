package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the signature algorithm of a [Codec].
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256 and a shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodRS256 signs with RSASSA-PKCS1-v1_5 SHA-256 and an RSA key pair.
	MethodRS256 SigningMethod = "rs256"
)

// ClaimSessionData is the claim that carries the whole session map.
const ClaimSessionData = "session-data"

var (
	// ErrInvalidKey is returned by NewCodec when key material is missing or unparsable.
	ErrInvalidKey = errors.New("invalid key material")
	// ErrUnsupportedMethod is returned by NewCodec for unknown signing methods.
	ErrUnsupportedMethod = errors.New("unsupported signing method")
	// ErrMalformed is returned by Parse for anything that is not a three-segment JWT.
	ErrMalformed = errors.New("malformed token")
)

// Config holds the signer and key material of a [Codec].
//
// For MethodHS256 VerificationKey may be empty, in which case SigningKey is used
// for both directions. For MethodRS256 both keys are PEM encoded.
type Config struct {
	SigningMethod   SigningMethod
	SigningKey      []byte
	VerificationKey []byte
}

// Claims is the set of claims written by [Codec.Sign].
type Claims struct {
	IssuedAt    time.Time
	ExpiresAt   time.Time
	SessionData map[string]any
}

type sessionClaims struct {
	jwt.RegisteredClaims
	SessionData map[string]any `json:"session-data"`
}

// Codec signs and verifies session tokens. It is immutable after NewCodec and
// safe for concurrent use.
type Codec struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	parser    *jwt.Parser
}

// NewCodec parses the configured key material once and returns a ready Codec.
func NewCodec(cfg Config) (*Codec, error) {
	c := &Codec{
		parser: jwt.NewParser(jwt.WithoutClaimsValidation(), jwt.WithStrictDecoding(), jwt.WithJSONNumber()),
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.SigningKey) == 0 {
			return nil, fmt.Errorf("hs256 requires a shared secret: %w", ErrInvalidKey)
		}
		verify := cfg.VerificationKey
		if len(verify) == 0 {
			verify = cfg.SigningKey
		}
		c.method = jwt.SigningMethodHS256
		c.signKey = cloneBytes(cfg.SigningKey)
		c.verifyKey = cloneBytes(verify)
	case MethodRS256:
		priv, err := parsePrivateKey(cfg.SigningKey)
		if err != nil {
			return nil, err
		}
		pub, err := parsePublicKey(cfg.VerificationKey)
		if err != nil {
			return nil, err
		}
		c.method = jwt.SigningMethodRS256
		c.signKey = priv
		c.verifyKey = pub
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, cfg.SigningMethod)
	}

	return c, nil
}

// Algorithm returns the JOSE alg header value, e.g. "RS256".
func (c *Codec) Algorithm() string {
	return c.method.Alg()
}

// Sign serializes claims into a compact token. Output is deterministic for
// identical claims and key material.
func (c *Codec) Sign(claims Claims) (string, error) {
	data := claims.SessionData
	if data == nil {
		data = map[string]any{}
	}

	token := jwt.NewWithClaims(c.method, sessionClaims{
		SessionData: data,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})

	signed, err := token.SignedString(c.signKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse splits and decodes raw without checking claims or the signature.
// Every failure wraps ErrMalformed.
func (c *Codec) Parse(raw string) (*Token, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, fmt.Errorf("%w: expected three segments", ErrMalformed)
	}

	claims := jwt.MapClaims{}
	parsed, parts, err := c.parser.ParseUnverified(raw, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	sig, err := c.parser.DecodeSegment(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature segment: %v", ErrMalformed, err)
	}

	alg, _ := parsed.Header["alg"].(string)

	return &Token{
		alg:           alg,
		claims:        claims,
		signingString: parts[0] + "." + parts[1],
		signature:     sig,
	}, nil
}

// Verify recomputes the signature of t with the verification key. It returns
// false for a nil token, an alg header that differs from the configured method,
// or any cryptographic mismatch.
func (c *Codec) Verify(t *Token) bool {
	if c == nil || t == nil || t.alg != c.method.Alg() {
		return false
	}
	return c.method.Verify(t.signingString, t.signature, c.verifyKey) == nil
}

func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	if len(pemBytes) == 0 {
		return nil, fmt.Errorf("rs256 requires a private key: %w", ErrInvalidKey)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse rsa private key: %w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

func parsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	if len(pemBytes) == 0 {
		return nil, fmt.Errorf("rs256 requires a public key: %w", ErrInvalidKey)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse rsa public key: %w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
