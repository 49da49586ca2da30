package storageless

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/storageless/clock"
	"github.com/MrEthical07/storageless/cookie"
	"github.com/MrEthical07/storageless/jwt"
)

const (
	// DefaultCookieName is the session cookie name used when none is configured.
	DefaultCookieName = "slsession"
	// DefaultTTL is the session lifetime used when none is configured.
	DefaultTTL = 20 * time.Minute
)

// Config defines how sessions are signed, how long they live and which cookie
// carries them.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	CookieName      string
	TTL             time.Duration
	SigningMethod   jwt.SigningMethod
	SigningKey      []byte // HMAC secret, or PEM private key for rs256
	VerificationKey []byte // PEM public key for rs256; ignored for hs256
	Cookie          CookieConfig
	Regeneration    RegenerationMode

	// Clock and Logger default to clock.System() and a discarding logger.
	Clock  clock.Clock
	Logger *slog.Logger

	Metrics MetricsConfig
	Audit   AuditConfig
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig holds the static cookie attributes. The cookie name lives on
// Config.CookieName.
type CookieConfig struct {
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

/*
====================================
REGENERATION
====================================
*/

// RegenerationMode selects what Session.Regenerate does.
type RegenerationMode int

const (
	// RegenerateMarker stamps RegeneratedKey with the current Unix time.
	RegenerateMarker RegenerationMode = iota
	// RegenerateUnsupported makes Session.Regenerate return ErrNotImplemented.
	RegenerateUnsupported
)

func (m RegenerationMode) String() string {
	switch m {
	case RegenerateMarker:
		return "marker"
	case RegenerateUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("RegenerationMode(%d)", int(m))
	}
}

/*
====================================
AUDIT & METRICS CONFIG
====================================
*/

// AuditConfig controls asynchronous audit event dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns an HS256 configuration with a 20 minute TTL and the
// "slsession" cookie (path "/", Secure, HttpOnly, SameSite=Lax). A signing key
// must still be supplied before the config validates.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		CookieName:    DefaultCookieName,
		TTL:           DefaultTTL,
		SigningMethod: jwt.MethodHS256,
		Cookie: CookieConfig{
			Path:     "/",
			Secure:   true,
			HTTPOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		Regeneration: RegenerateMarker,
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.SigningKey = cloneBytes(cfg.SigningKey)
	out.VerificationKey = cloneBytes(cfg.VerificationKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c Config) cookieTemplate() cookie.Template {
	return cookie.Template{
		Name:     c.CookieName,
		Path:     c.Cookie.Path,
		Domain:   c.Cookie.Domain,
		Secure:   c.Cookie.Secure,
		HTTPOnly: c.Cookie.HTTPOnly,
		SameSite: c.Cookie.SameSite,
	}
}

func (c Config) codecConfig() jwt.Config {
	return jwt.Config{
		SigningMethod:   c.SigningMethod,
		SigningKey:      cloneBytes(c.SigningKey),
		VerificationKey: cloneBytes(c.VerificationKey),
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks c for settings that cannot produce a working Persistence.
// Key material is only checked for presence here; parsing happens in Build.
func (c *Config) Validate() error {
	if c.CookieName == "" {
		return invalidConfig("CookieName must not be empty")
	}
	if strings.ContainsAny(c.CookieName, " \t\r\n;,=\"") {
		return invalidConfig("CookieName contains characters not allowed in a cookie name")
	}
	if c.TTL <= 0 {
		return invalidConfig("TTL must be > 0")
	}
	if c.TTL%time.Second != 0 {
		return invalidConfig("TTL must be a whole number of seconds")
	}

	switch c.SigningMethod {
	case jwt.MethodHS256:
		if len(c.SigningKey) == 0 {
			return invalidConfig("hs256 requires SigningKey")
		}
	case jwt.MethodRS256:
		if len(c.SigningKey) == 0 {
			return invalidConfig("rs256 requires SigningKey (PEM private key)")
		}
		if len(c.VerificationKey) == 0 {
			return invalidConfig("rs256 requires VerificationKey (PEM public key)")
		}
	default:
		return invalidConfig("unsupported SigningMethod")
	}

	if c.Cookie.Path == "" || !strings.HasPrefix(c.Cookie.Path, "/") {
		return invalidConfig("Cookie Path must start with /")
	}
	if strings.ContainsAny(c.Cookie.Path+c.Cookie.Domain, ";\r\n") {
		return invalidConfig("Cookie Path and Domain must not contain ';' or line breaks")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return invalidConfig("Cookie SameSite=None requires Secure")
	}

	if c.Regeneration != RegenerateMarker && c.Regeneration != RegenerateUnsupported {
		return invalidConfig("unknown Regeneration mode")
	}

	if c.Audit.BufferSize < 0 {
		return invalidConfig("Audit BufferSize must be >= 0")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return invalidConfig("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func invalidConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
