package pion

import (
	"context"
	"errors"
	"testing"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rtcscope/internal/core/domain"
)

func newTestPeerConnection(t *testing.T) *webrtc.PeerConnection {
	t.Helper()
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })
	return pc
}

func TestCollectorSnapshotsFreshConnection(t *testing.T) {
	pc := newTestPeerConnection(t)
	c := New(pc, "caller", zaptest.NewLogger(t).Sugar())

	assert.NotEmpty(t, c.ID())
	assert.Equal(t, "caller", c.Label())

	records, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, records)

	var pcRecords []*domain.PeerConnectionRecord
	for _, rec := range records {
		if rec.Kind != domain.KindPeerConnection {
			continue
		}
		pcRec, ok := rec.Record.(*domain.PeerConnectionRecord)
		require.True(t, ok)
		pcRecords = append(pcRecords, pcRec)
	}
	require.Len(t, pcRecords, 1)

	pcRec := pcRecords[0]
	assert.NotEmpty(t, pcRec.ID)
	assert.False(t, pcRec.Timestamp.IsZero())
	require.NotNil(t, pcRec.Label)
	assert.Equal(t, "caller", *pcRec.Label)
	require.NotNil(t, pcRec.ConnectionState)
	assert.Equal(t, "new", *pcRec.ConnectionState)
	require.NotNil(t, pcRec.SignalingState)
	assert.Equal(t, "stable", *pcRec.SignalingState)
}

func TestCollectorHonorsContext(t *testing.T) {
	pc := newTestPeerConnection(t)
	c := New(pc, "", zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Collect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectorCloseLeavesConnectionOpen(t *testing.T) {
	pc := newTestPeerConnection(t)
	c := New(pc, "", zaptest.NewLogger(t).Sugar())

	require.NoError(t, c.Close())

	_, err := c.Collect(context.Background())
	assert.True(t, errors.Is(err, domain.ErrCollectorClosed))

	// Closing the collector must not tear down the application's connection.
	assert.NotEqual(t, webrtc.PeerConnectionStateClosed, pc.ConnectionState())
}
