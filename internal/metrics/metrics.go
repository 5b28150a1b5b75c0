// Package metrics instruments flow outcomes on the OpenTelemetry metric API.
// A nil *Metrics is a valid no-op receiver so flows never branch on whether
// instrumentation is wired.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	loginSuccess   metric.Int64Counter
	loginFailure   metric.Int64Counter
	accountLocked  metric.Int64Counter
	tfaRequired    metric.Int64Counter
	tfaSuccess     metric.Int64Counter
	tfaFailure     metric.Int64Counter
	resetRequested metric.Int64Counter
	resetCompleted metric.Int64Counter
	socialLogin    metric.Int64Counter
}

// New registers the engine's counters on the given meter.
func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.loginSuccess, err = meter.Int64Counter("authcore.login.success"); err != nil {
		return nil, err
	}
	if m.loginFailure, err = meter.Int64Counter("authcore.login.failure"); err != nil {
		return nil, err
	}
	if m.accountLocked, err = meter.Int64Counter("authcore.account.locked"); err != nil {
		return nil, err
	}
	if m.tfaRequired, err = meter.Int64Counter("authcore.tfa.required"); err != nil {
		return nil, err
	}
	if m.tfaSuccess, err = meter.Int64Counter("authcore.tfa.success"); err != nil {
		return nil, err
	}
	if m.tfaFailure, err = meter.Int64Counter("authcore.tfa.failure"); err != nil {
		return nil, err
	}
	if m.resetRequested, err = meter.Int64Counter("authcore.reset.requested"); err != nil {
		return nil, err
	}
	if m.resetCompleted, err = meter.Int64Counter("authcore.reset.completed"); err != nil {
		return nil, err
	}
	if m.socialLogin, err = meter.Int64Counter("authcore.social.login"); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) LoginSuccess(ctx context.Context) {
	if m != nil {
		m.loginSuccess.Add(ctx, 1)
	}
}

func (m *Metrics) LoginFailure(ctx context.Context) {
	if m != nil {
		m.loginFailure.Add(ctx, 1)
	}
}

func (m *Metrics) AccountLocked(ctx context.Context) {
	if m != nil {
		m.accountLocked.Add(ctx, 1)
	}
}

func (m *Metrics) TFARequired(ctx context.Context) {
	if m != nil {
		m.tfaRequired.Add(ctx, 1)
	}
}

func (m *Metrics) TFASuccess(ctx context.Context) {
	if m != nil {
		m.tfaSuccess.Add(ctx, 1)
	}
}

func (m *Metrics) TFAFailure(ctx context.Context) {
	if m != nil {
		m.tfaFailure.Add(ctx, 1)
	}
}

func (m *Metrics) ResetRequested(ctx context.Context) {
	if m != nil {
		m.resetRequested.Add(ctx, 1)
	}
}

func (m *Metrics) ResetCompleted(ctx context.Context) {
	if m != nil {
		m.resetCompleted.Add(ctx, 1)
	}
}

func (m *Metrics) SocialLogin(ctx context.Context, provider string) {
	if m != nil {
		m.socialLogin.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
	}
}
