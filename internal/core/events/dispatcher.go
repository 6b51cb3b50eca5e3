package events

import (
	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
)

type AlertListener func(domain.AlertEvent)
type IssueListener func(domain.Issue)

// Dispatcher fans alert and issue events out to registered callbacks.
// Listeners run synchronously inside the monitor cycle; a panicking
// listener is recovered and logged so one consumer cannot break the cycle
// for the others.
type Dispatcher struct {
	logger  *zap.SugaredLogger
	onAlert []AlertListener
	onIssue []IssueListener
}

func NewDispatcher(logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// OnAlert registers a callback for hysteresis transitions. Registration is
// part of wiring and must happen before the monitor starts cycling.
func (d *Dispatcher) OnAlert(fn AlertListener) {
	d.onAlert = append(d.onAlert, fn)
}

// OnIssue registers a callback for synthesized issue reports.
func (d *Dispatcher) OnIssue(fn IssueListener) {
	d.onIssue = append(d.onIssue, fn)
}

// EmitAlert delivers one transition to every alert listener.
func (d *Dispatcher) EmitAlert(ev domain.AlertEvent) {
	d.logger.Debugw("alert transition",
		"detector", ev.Detector,
		"target", ev.Target,
		"state", ev.State,
	)
	for _, fn := range d.onAlert {
		d.deliver(func() { fn(ev) })
	}
}

// EmitIssue delivers one issue to every issue listener.
func (d *Dispatcher) EmitIssue(is domain.Issue) {
	d.logger.Debugw("issue reported",
		"code", is.Code,
		"severity", is.Severity,
		"target", is.Target,
	)
	for _, fn := range d.onIssue {
		d.deliver(func() { fn(is) })
	}
}

func (d *Dispatcher) deliver(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warnw("event listener panicked", "panic", r)
		}
	}()
	fn()
}
