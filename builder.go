package storageless

import (
	"fmt"
	"log/slog"

	"github.com/MrEthical07/storageless/clock"
	"github.com/MrEthical07/storageless/jwt"
)

// Builder assembles a Persistence from a Config plus runtime collaborators.
// A Builder can be built once.
type Builder struct {
	config Config

	clock     clock.Clock
	logger    *slog.Logger
	auditSink AuditSink

	built bool
}

// NewBuilder starts from DefaultConfig.
func NewBuilder() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Key material is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithClock overrides Config.Clock.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// WithLogger overrides Config.Logger.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the sink and enables audit dispatch.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled turns on counters and latency histograms.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, parses key material and returns a ready
// Persistence. Invalid key material is reported as ErrInvalidKey.
func (b *Builder) Build() (*Persistence, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if b.clock != nil {
		cfg.Clock = b.clock
	}
	if b.logger != nil {
		cfg.Logger = b.logger
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec, err := jwt.NewCodec(cfg.codecConfig())
	if err != nil {
		return nil, fmt.Errorf("build session codec: %w", err)
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	p := &Persistence{
		config:   cfg,
		codec:    codec,
		template: cfg.cookieTemplate(),
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		metrics:  NewMetrics(cfg.Metrics),
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink, cfg.Logger),
	}

	b.built = true

	return p, nil
}
