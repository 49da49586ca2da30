package storageless

import (
	"context"

	"github.com/google/uuid"
)

type decodeOutcome uint8

const (
	outcomeLoaded decodeOutcome = iota
	outcomeMalformed
	outcomeInvalidClaims
	outcomeBadSignature
)

func (o decodeOutcome) String() string {
	switch o {
	case outcomeLoaded:
		return "loaded"
	case outcomeMalformed:
		return "token_malformed"
	case outcomeInvalidClaims:
		return "claims_invalid"
	case outcomeBadSignature:
		return "signature_invalid"
	default:
		return "unknown"
	}
}

func (o decodeOutcome) metric() MetricID {
	switch o {
	case outcomeMalformed:
		return MetricTokenMalformed
	case outcomeInvalidClaims:
		return MetricTokenExpired
	case outcomeBadSignature:
		return MetricTokenSignatureInvalid
	default:
		return MetricSessionLoaded
	}
}

func (p *Persistence) emitAudit(ctx context.Context, eventType, reason string, keys int, success bool) {
	if p == nil || p.audit == nil {
		return
	}

	p.audit.Emit(ctx, AuditEvent{
		ID:         uuid.NewString(),
		Timestamp:  p.clock.Now(),
		EventType:  eventType,
		Reason:     reason,
		CookieName: p.template.Name,
		Keys:       keys,
		Success:    success,
	})
}
