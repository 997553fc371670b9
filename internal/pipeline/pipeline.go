// Package pipeline chains the security controls in front of a business action.
//
// A run moves Unauthenticated → Authenticated → Authorized → Confirmed (destructive actions)
// → IntegrityChecked (mutating actions) → Executed. The first denial moves it to Rejected and
// no later stage runs. An action that fails for a reason other than a denial ends in Failed.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"owasp-controls-demo/backend/internal/access"
	"owasp-controls-demo/backend/internal/audit"
	"owasp-controls-demo/backend/internal/confirm"
	"owasp-controls-demo/backend/internal/credential"
	"owasp-controls-demo/backend/internal/decision"
	"owasp-controls-demo/backend/internal/egress"
	"owasp-controls-demo/backend/internal/identity/domain"
	"owasp-controls-demo/backend/internal/integrity"
	"owasp-controls-demo/backend/internal/logging"
)

const instrumentationName = "owasp-controls-demo/pipeline"

// Variant names a configuration of the pipeline.
type Variant string

const (
	VariantSecure   Variant = "secure"
	VariantInsecure Variant = "insecure"
)

// ParseVariant returns the variant named s.
func ParseVariant(s string) (Variant, bool) {
	switch Variant(s) {
	case VariantSecure, VariantInsecure:
		return Variant(s), true
	}
	return "", false
}

// State is a pipeline state.
type State string

const (
	StateUnauthenticated  State = "unauthenticated"
	StateAuthenticated    State = "authenticated"
	StateAuthorized       State = "authorized"
	StateConfirmed        State = "confirmed"
	StateIntegrityChecked State = "integrity_checked"
	StateExecuted         State = "executed"
	StateRejected         State = "rejected"
	StateFailed           State = "failed"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateExecuted || s == StateRejected || s == StateFailed
}

// SessionResolver maps a session token to its identity. Unknown tokens yield a denial.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*domain.Identity, error)
}

// Profile is the set of controls a variant applies.
type Profile struct {
	Verifier       credential.Verifier
	Authorize      bool
	Confirm        bool
	CheckIntegrity bool
	ValidateEgress bool
	Fetcher        *egress.Fetcher
	Audit          audit.AuditLogger
}

// Deps are the controls shared by all variants.
type Deps struct {
	Sessions  SessionResolver
	Guard     access.Guard
	Gate      confirm.Gate
	Signer    *integrity.Signer
	Validator *egress.Validator
	Profiles  map[Variant]Profile
	Logger    logging.Logger
}

// Login asks the pipeline to authenticate with credentials instead of a session.
type Login struct {
	Username  string
	Secret    string
	SourceKey string
}

// Action is the business step. It runs only when every control allowed the request.
type Action func(ctx context.Context, identity *domain.Identity) (any, error)

// Request describes one protected operation.
type Request struct {
	Variant Variant
	// Name labels the operation in traces and audit records.
	Name string

	SessionToken string
	Login        *Login

	// ResourceOwnerID is the owner of the target resource; empty skips the ownership check.
	ResourceOwnerID string
	// EnforceOwnership applies the ownership check even when the profile does not authorize.
	EnforceOwnership bool

	Destructive       bool
	ConfirmationToken string

	// Payload marks the request as mutating; Signature must sign it.
	Payload   *integrity.BalanceUpdate
	Signature string

	// EgressURL is fetched after Action when set.
	EgressURL string

	Action Action
}

// Outcome is the result of a run.
type Outcome struct {
	State    State
	Stages   []State
	Identity *domain.Identity
	Result   any
	Fetched  *egress.Result
	// Err is a *decision.Denial when State is Rejected, the action's error when Failed.
	Err error
}

// Denial returns the denial that rejected the run.
func (o Outcome) Denial() (*decision.Denial, bool) {
	if o.State != StateRejected {
		return nil, false
	}
	return decision.AsDenial(o.Err)
}

// Pipeline runs requests through the controls of their variant.
type Pipeline struct {
	deps      Deps
	logger    logging.Logger
	tracer    trace.Tracer
	decisions metric.Int64Counter
}

// New returns a Pipeline. Instruments come from the global OTel providers.
func New(deps Deps) (*Pipeline, error) {
	if deps.Sessions == nil {
		return nil, errors.New("pipeline: session resolver is required")
	}
	for v, p := range deps.Profiles {
		if p.Authorize && deps.Guard == nil {
			return nil, fmt.Errorf("pipeline: variant %s authorizes without a guard", v)
		}
		if p.CheckIntegrity && deps.Signer == nil {
			return nil, fmt.Errorf("pipeline: variant %s checks integrity without a signer", v)
		}
		if p.ValidateEgress && deps.Validator == nil {
			return nil, fmt.Errorf("pipeline: variant %s validates egress without a validator", v)
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"controls.decisions",
		metric.WithDescription("Security control decisions by kind and verdict"),
	)
	if err != nil {
		return nil, fmt.Errorf("pipeline: create counter: %w", err)
	}
	return &Pipeline{
		deps:      deps,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		decisions: counter,
	}, nil
}

// Run drives req through the controls and, if all allow, executes it.
func (p *Pipeline) Run(ctx context.Context, req Request) Outcome {
	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("pipeline.variant", string(req.Variant)),
		attribute.String("pipeline.operation", req.Name),
	))
	defer span.End()

	out := Outcome{State: StateUnauthenticated, Stages: []State{StateUnauthenticated}}
	profile, ok := p.deps.Profiles[req.Variant]
	if !ok {
		return p.reject(ctx, span, req, profile, out, decision.Deny(decision.KindValidation, "unknown variant"))
	}
	if profile.Audit == nil {
		profile.Audit = audit.Nop{}
	}

	identity, err := p.authenticate(ctx, req, profile)
	if err != nil {
		if !isDenial(err) {
			return p.fail(ctx, span, out, err)
		}
		return p.reject(ctx, span, req, profile, out, err)
	}
	out.Identity = identity
	out = p.advance(ctx, span, out, StateAuthenticated, "authentication", req.Variant)
	if req.Login != nil {
		profile.Audit.LogEvent(ctx, audit.Event{IdentityID: identity.ID, Username: identity.Username, Action: audit.ActionLoginSuccess, Outcome: audit.OutcomeSuccess})
	}

	if (profile.Authorize || req.EnforceOwnership) && req.ResourceOwnerID != "" {
		if err := p.deps.Guard.Authorize(ctx, identity, req.ResourceOwnerID); err != nil {
			if !isDenial(err) {
				return p.fail(ctx, span, out, err)
			}
			return p.reject(ctx, span, req, profile, out, err)
		}
	}
	out = p.advance(ctx, span, out, StateAuthorized, "authorization", req.Variant)

	if req.Destructive {
		if profile.Confirm {
			if err := p.deps.Gate.Require(req.ConfirmationToken); err != nil {
				return p.reject(ctx, span, req, profile, out, err)
			}
		}
		out = p.advance(ctx, span, out, StateConfirmed, "confirmation", req.Variant)
	}

	if req.Payload != nil {
		if profile.CheckIntegrity {
			if err := p.deps.Signer.Check(*req.Payload, req.Signature); err != nil {
				return p.reject(ctx, span, req, profile, out, err)
			}
		}
		out = p.advance(ctx, span, out, StateIntegrityChecked, "integrity", req.Variant)
	}

	if req.EgressURL != "" && profile.ValidateEgress {
		if _, err := p.deps.Validator.Validate(req.EgressURL); err != nil {
			return p.reject(ctx, span, req, profile, out, err)
		}
		p.record(ctx, "egress", req.Variant, nil)
		span.AddEvent("egress_allowed")
	}

	if req.Action != nil {
		res, err := req.Action(ctx, identity)
		if err != nil {
			if isDenial(err) {
				return p.reject(ctx, span, req, profile, out, err)
			}
			return p.fail(ctx, span, out, err)
		}
		out.Result = res
	}
	if req.EgressURL != "" {
		fetcher := profile.Fetcher
		if fetcher == nil {
			return p.fail(ctx, span, out, errors.New("pipeline: no fetcher configured"))
		}
		fetched, err := fetcher.Fetch(ctx, req.EgressURL)
		out.Fetched = fetched
		if err != nil {
			if isDenial(err) {
				return p.reject(ctx, span, req, profile, out, err)
			}
			return p.fail(ctx, span, out, err)
		}
	}

	out = p.advance(ctx, span, out, StateExecuted, "", req.Variant)
	if req.Name != "" && (req.Destructive || req.Payload != nil) {
		profile.Audit.LogEvent(ctx, audit.Event{IdentityID: identity.ID, Username: identity.Username, Action: req.Name, Outcome: audit.OutcomeSuccess})
	}
	span.SetStatus(codes.Ok, "")
	return out
}

func (p *Pipeline) authenticate(ctx context.Context, req Request, profile Profile) (*domain.Identity, error) {
	if req.Login != nil {
		if profile.Verifier == nil {
			return nil, decision.ErrNotAuthenticated
		}
		return profile.Verifier.Verify(ctx, req.Login.Username, req.Login.Secret, req.Login.SourceKey)
	}
	if req.SessionToken == "" {
		return nil, decision.ErrNotAuthenticated
	}
	return p.deps.Sessions.Resolve(ctx, req.SessionToken)
}

// advance moves to next, recording the allow decision of the control that guarded it.
func (p *Pipeline) advance(ctx context.Context, span trace.Span, out Outcome, next State, control string, v Variant) Outcome {
	if control != "" {
		p.record(ctx, control, v, nil)
	}
	span.AddEvent(string(next))
	out.State = next
	out.Stages = append(out.Stages, next)
	return out
}

func (p *Pipeline) reject(ctx context.Context, span trace.Span, req Request, profile Profile, out Outcome, err error) Outcome {
	d, ok := decision.AsDenial(err)
	if !ok {
		return p.fail(ctx, span, out, err)
	}
	p.record(ctx, string(d.Kind), req.Variant, d)
	span.AddEvent(string(StateRejected), trace.WithAttributes(
		attribute.String("denial.kind", string(d.Kind)),
		attribute.String("denial.reason", d.Reason),
	))
	span.SetStatus(codes.Error, d.Reason)

	if profile.Audit != nil {
		e := audit.Event{Action: audit.ActionForDenial(d), Outcome: audit.OutcomeDenied, Metadata: d.Reason}
		if out.Identity != nil {
			e.IdentityID, e.Username = out.Identity.ID, out.Identity.Username
		} else if req.Login != nil {
			e.Username = req.Login.Username
		}
		profile.Audit.LogEvent(ctx, e)
	}
	p.logger.Debug(ctx, "pipeline rejected", "operation", req.Name, "variant", req.Variant, "kind", d.Kind, "reason", d.Reason)

	out.State = StateRejected
	out.Stages = append(out.Stages, StateRejected)
	out.Err = d
	return out
}

func (p *Pipeline) fail(ctx context.Context, span trace.Span, out Outcome, err error) Outcome {
	span.RecordError(err)
	span.SetStatus(codes.Error, "action failed")
	p.logger.Error(ctx, "pipeline failed", "error", err)
	out.State = StateFailed
	out.Stages = append(out.Stages, StateFailed)
	out.Err = err
	return out
}

func (p *Pipeline) record(ctx context.Context, control string, v Variant, d *decision.Denial) {
	verdict := "allow"
	if d != nil {
		verdict = "deny"
	}
	p.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("control", control),
		attribute.String("variant", string(v)),
		attribute.String("verdict", verdict),
	))
}

func isDenial(err error) bool {
	_, ok := decision.AsDenial(err)
	return ok
}
