package storageless

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/storageless/clock"
	"github.com/MrEthical07/storageless/cookie"
	"github.com/MrEthical07/storageless/jwt"
)

// Persistence decodes sessions from request cookies and encodes them into
// response cookies. It holds no per-session state.
//
// Persistence instances are immutable after construction and safe for concurrent use.
type Persistence struct {
	config   Config
	codec    *jwt.Codec
	template cookie.Template
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *Metrics
	audit    *auditDispatcher
}

// New validates cfg and returns a ready Persistence.
func New(cfg Config) (*Persistence, error) {
	return NewBuilder().WithConfig(cfg).Build()
}

// NewSymmetric returns an HS256 Persistence with default cookie attributes.
func NewSymmetric(secret []byte, ttl time.Duration) (*Persistence, error) {
	cfg := defaultConfig()
	cfg.SigningMethod = jwt.MethodHS256
	cfg.SigningKey = secret
	cfg.TTL = ttl
	return New(cfg)
}

// NewAsymmetric returns an RS256 Persistence with default cookie attributes.
// privatePEM signs, publicPEM verifies.
func NewAsymmetric(privatePEM, publicPEM []byte, ttl time.Duration) (*Persistence, error) {
	cfg := defaultConfig()
	cfg.SigningMethod = jwt.MethodRS256
	cfg.SigningKey = privatePEM
	cfg.VerificationKey = publicPEM
	cfg.TTL = ttl
	return New(cfg)
}

// Close flushes pending audit events and stops the dispatcher.
func (p *Persistence) Close() {
	if p == nil {
		return
	}
	if p.audit != nil {
		p.audit.Close()
	}
}

// CookieName returns the configured session cookie name.
func (p *Persistence) CookieName() string {
	return p.template.Name
}

// TTL returns the configured session lifetime.
func (p *Persistence) TTL() time.Duration {
	return p.config.TTL
}

// Algorithm returns the JOSE alg used for session tokens.
func (p *Persistence) Algorithm() string {
	return p.codec.Algorithm()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (p *Persistence) AuditDropped() uint64 {
	if p == nil || p.audit == nil {
		return 0
	}
	return p.audit.Dropped()
}

// MetricsSnapshot returns a copy of the current metrics.
func (p *Persistence) MetricsSnapshot() MetricsSnapshot {
	if p == nil || p.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return p.metrics.Snapshot()
}

// InitializeSessionFromRequest returns the session carried by r's session
// cookie. A missing, malformed, expired or unverifiable token yields an empty
// session; the reason is recorded in metrics, debug logs and audit events only.
// The returned session is never nil.
func (p *Persistence) InitializeSessionFromRequest(r *http.Request) *Session {
	start := time.Now()
	defer func() { p.metrics.Observe(MetricDecodeLatency, time.Since(start)) }()

	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
	}

	raw, ok := cookie.Read(r, p.template.Name)
	if !ok {
		p.metrics.Inc(MetricSessionAbsent)
		return p.emptySession()
	}

	data, outcome := p.decode(raw)
	if outcome != outcomeLoaded {
		p.reject(ctx, outcome)
		return p.emptySession()
	}

	p.metrics.Inc(MetricSessionLoaded)
	p.emitAudit(ctx, AuditSessionLoaded, "", len(data), true)

	return newSession(data, p.config.Regeneration, p.clock, p.metrics)
}

// DecodeToken runs raw through the parse, claim-validation and signature
// pipeline without an HTTP request. ok is false when the token would be
// rejected.
func (p *Persistence) DecodeToken(raw string) (map[string]any, bool) {
	data, outcome := p.decode(raw)
	if outcome != outcomeLoaded {
		return nil, false
	}
	return data, true
}

func (p *Persistence) decode(raw string) (map[string]any, decodeOutcome) {
	token, err := p.codec.Parse(raw)
	if err != nil {
		return nil, outcomeMalformed
	}
	if !token.ValidAt(p.clock.Now()) {
		return nil, outcomeInvalidClaims
	}
	if !p.codec.Verify(token) {
		return nil, outcomeBadSignature
	}
	return token.SessionData(), outcomeLoaded
}

// PersistSession writes the Set-Cookie line for s into h. An empty session
// produces a clearing cookie; anything else is signed with iat=now and
// exp=now+TTL. Other Set-Cookie lines in h are preserved.
func (p *Persistence) PersistSession(s *Session, h http.Header) error {
	return p.persist(context.Background(), s, h)
}

// PersistSessionToResponse is PersistSession on w.Header(). It must be called
// before the response status is written.
func (p *Persistence) PersistSessionToResponse(s *Session, w http.ResponseWriter) error {
	return p.persist(context.Background(), s, w.Header())
}

// PersistSessionContext is PersistSession with a context for audit dispatch.
func (p *Persistence) PersistSessionContext(ctx context.Context, s *Session, h http.Header) error {
	return p.persist(ctx, s, h)
}

func (p *Persistence) persist(ctx context.Context, s *Session, h http.Header) error {
	start := time.Now()
	defer func() { p.metrics.Observe(MetricEncodeLatency, time.Since(start)) }()

	now := p.clock.Now()

	if s == nil || s.IsEmpty() {
		cookie.Attach(h, cookie.Expired(p.template, now))
		p.metrics.Inc(MetricCookieCleared)
		p.emitAudit(ctx, AuditCookieCleared, "", 0, true)
		return nil
	}

	token, err := p.codec.Sign(jwt.Claims{
		IssuedAt:    now,
		ExpiresAt:   now.Add(p.config.TTL),
		SessionData: s.data,
	})
	if err != nil {
		p.metrics.Inc(MetricEncodeFailure)
		p.logger.Warn("session encode failed", slog.String("cookie", p.template.Name), slog.Any("error", err))
		p.emitAudit(ctx, AuditSessionEncodeFailed, "encode_error", s.Len(), false)
		return fmt.Errorf("%w: %v", ErrSessionEncode, err)
	}

	cookie.Attach(h, cookie.Live(p.template, token, now, p.config.TTL))
	p.metrics.Inc(MetricCookieIssued)
	p.emitAudit(ctx, AuditCookieIssued, "", s.Len(), true)
	return nil
}

func (p *Persistence) emptySession() *Session {
	return newSession(nil, p.config.Regeneration, p.clock, p.metrics)
}

func (p *Persistence) reject(ctx context.Context, outcome decodeOutcome) {
	p.metrics.Inc(outcome.metric())
	p.logger.DebugContext(ctx, "session token rejected",
		slog.String("reason", outcome.String()),
		slog.String("cookie", p.template.Name),
	)
	p.emitAudit(ctx, AuditSessionRejected, outcome.String(), 0, false)
}

// Logger returns the logger used for rejected tokens and encode failures.
func (p *Persistence) Logger() *slog.Logger {
	return p.logger
}
