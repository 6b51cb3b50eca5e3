package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"rtcscope/internal/core/domain"
)

func TestDispatcherDeliversToAllListeners(t *testing.T) {
	d := NewDispatcher(zap.NewNop().Sugar())

	var first, second []domain.AlertEvent
	d.OnAlert(func(ev domain.AlertEvent) { first = append(first, ev) })
	d.OnAlert(func(ev domain.AlertEvent) { second = append(second, ev) })

	var issues []domain.Issue
	d.OnIssue(func(is domain.Issue) { issues = append(issues, is) })

	ev := domain.AlertEvent{Detector: "congestion", Target: "pc-1", State: domain.AlertOn, Timestamp: time.Now()}
	d.EmitAlert(ev)
	d.EmitIssue(domain.Issue{Code: "congestion", Severity: domain.SeverityMajor, Target: "pc-1"})

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
	assert.Equal(t, "congestion", first[0].Detector)
	assert.Len(t, issues, 1)
}

func TestDispatcherIsolatesPanickingListener(t *testing.T) {
	d := NewDispatcher(zap.NewNop().Sugar())

	var delivered int
	d.OnAlert(func(domain.AlertEvent) { panic("listener broke") })
	d.OnAlert(func(domain.AlertEvent) { delivered++ })

	assert.NotPanics(t, func() {
		d.EmitAlert(domain.AlertEvent{Detector: "low-score", Target: "pc-1", State: domain.AlertOff})
	})
	assert.Equal(t, 1, delivered)
}
