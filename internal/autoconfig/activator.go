package autoconfig

import (
	"go.uber.org/zap"
)

// Reasons attached to decisions. They double as the outcome label of the
// decisions metric.
const (
	ReasonActivated          = "activated"
	ReasonAlreadyRegistered  = "already-registered"
	ReasonMissingCapability  = "missing-capability"
	ReasonNotWebApplication  = "not-web-application"
	ReasonSkipped            = "skipped"
	ReasonFilterRegistered   = "filter-registered"
	ReasonOpenInViewDisabled = "open-in-view-disabled"
)

// ActivationDecision says whether to register one component.
type ActivationDecision struct {
	Kind     Kind   `yaml:"kind"`
	Register bool   `yaml:"register"`
	Reason   string `yaml:"reason"`
}

// Decisions holds the outcome for each optional component.
type Decisions struct {
	TransactionCoordinator ActivationDecision `yaml:"transaction_coordinator"`
	SessionFactory         ActivationDecision `yaml:"session_factory"`
	Interceptor            ActivationDecision `yaml:"interceptor"`
}

// All returns the decisions in evaluation order.
func (d Decisions) All() []ActivationDecision {
	return []ActivationDecision{d.TransactionCoordinator, d.SessionFactory, d.Interceptor}
}

// Inputs is everything a decision depends on.
type Inputs struct {
	Capabilities   Capabilities
	WebApplication bool
	Registrations  RegistrationProbe
	// OpenInView is nil when the property is absent.
	OpenInView *bool
}

// DecisionRecorder counts decisions.
type DecisionRecorder interface {
	RecordDecision(component, outcome string)
}

// Activator evaluates activation conditions.
type Activator struct {
	logger   *zap.Logger
	recorder DecisionRecorder
}

// NewActivator creates an activator. Both arguments may be nil.
func NewActivator(logger *zap.Logger, recorder DecisionRecorder) *Activator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Activator{logger: logger, recorder: recorder}
}

// Decide evaluates the three components in order. It is pure apart from
// logging and metrics.
func (a *Activator) Decide(in Inputs) Decisions {
	probe := in.Registrations
	if probe == nil {
		probe = ProbeFunc(func(Kind) bool { return false })
	}

	var d Decisions
	if !in.Capabilities.core() {
		d = Decisions{
			TransactionCoordinator: skip(KindTransactionCoordinator, ReasonMissingCapability),
			SessionFactory:         skip(KindSessionFactory, ReasonMissingCapability),
			Interceptor:            skip(KindOpenSessionInViewInterceptor, ReasonMissingCapability),
		}
	} else {
		d = Decisions{
			TransactionCoordinator: unlessRegistered(probe, KindTransactionCoordinator),
			SessionFactory:         unlessRegistered(probe, KindSessionFactory),
			Interceptor:            decideInterceptor(in, probe),
		}
	}

	for _, decision := range d.All() {
		a.logger.Info("Auto-configuration decision",
			zap.String("component", string(decision.Kind)),
			zap.Bool("register", decision.Register),
			zap.String("reason", decision.Reason),
		)
		if a.recorder != nil {
			a.recorder.RecordDecision(string(decision.Kind), decision.Reason)
		}
	}
	return d
}

func decideInterceptor(in Inputs, probe RegistrationProbe) ActivationDecision {
	const kind = KindOpenSessionInViewInterceptor

	switch {
	case !in.WebApplication:
		return skip(kind, ReasonNotWebApplication)
	case !in.Capabilities.WebPipeline:
		return skip(kind, ReasonSkipped)
	case probe.Has(KindOpenSessionInViewInterceptor):
		return skip(kind, ReasonAlreadyRegistered)
	case probe.Has(KindOpenSessionInViewFilter):
		return skip(kind, ReasonFilterRegistered)
	case in.OpenInView != nil && !*in.OpenInView:
		return skip(kind, ReasonOpenInViewDisabled)
	}
	return ActivationDecision{Kind: kind, Register: true, Reason: ReasonActivated}
}

func unlessRegistered(probe RegistrationProbe, kind Kind) ActivationDecision {
	if probe.Has(kind) {
		return skip(kind, ReasonAlreadyRegistered)
	}
	return ActivationDecision{Kind: kind, Register: true, Reason: ReasonActivated}
}

func skip(kind Kind, reason string) ActivationDecision {
	return ActivationDecision{Kind: kind, Reason: reason}
}
