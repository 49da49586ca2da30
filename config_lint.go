package storageless

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/storageless/jwt"
)

// LintSeverity ranks how risky a configuration choice is.
type LintSeverity int

const (
	// LintInfo marks choices that are fine but worth knowing about.
	LintInfo LintSeverity = iota
	// LintWarn marks choices that weaken session security.
	LintWarn
	// LintHigh marks choices that are almost certainly a mistake in production.
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one non-fatal finding about a Config.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings returned by Config.Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins every warning at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	selected := r.BySeverity(min)
	if len(selected) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(selected))
	for _, w := range selected {
		msgs = append(msgs, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return errors.New("config lint: " + strings.Join(msgs, "; "))
}

const (
	minHS256SecretBytes = 32
	lintTTLLong         = 24 * time.Hour
	lintTTLShort        = time.Minute
)

// Lint reports settings that are valid but risky. It never fails; pair it with
// AsError to enforce a policy at startup.
func (c *Config) Lint() LintResult {
	var ws LintResult

	if !c.Cookie.Secure {
		ws = append(ws, LintWarning{
			Code:     "insecure_cookie",
			Severity: LintHigh,
			Message:  "session cookie is sent over plain HTTP",
		})
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode {
		ws = append(ws, LintWarning{
			Code:     "samesite_none",
			Severity: LintWarn,
			Message:  "SameSite=None sends the session cookie on cross-site requests",
		})
	}
	if c.SigningMethod == jwt.MethodHS256 && len(c.SigningKey) < minHS256SecretBytes {
		ws = append(ws, LintWarning{
			Code:     "hs256_short_secret",
			Severity: LintHigh,
			Message:  fmt.Sprintf("hs256 secret is %d bytes, want at least %d", len(c.SigningKey), minHS256SecretBytes),
		})
	}
	if c.TTL > lintTTLLong {
		ws = append(ws, LintWarning{
			Code:     "ttl_long",
			Severity: LintWarn,
			Message:  "sessions outlive a day and cannot be revoked server-side",
		})
	}
	if c.TTL > 0 && c.TTL < lintTTLShort {
		ws = append(ws, LintWarning{
			Code:     "ttl_short",
			Severity: LintInfo,
			Message:  "sessions shorter than a minute expire between typical requests",
		})
	}
	if c.Regeneration == RegenerateUnsupported {
		ws = append(ws, LintWarning{
			Code:     "regeneration_unsupported",
			Severity: LintInfo,
			Message:  "Session.Regenerate returns ErrNotImplemented",
		})
	}

	return ws
}
