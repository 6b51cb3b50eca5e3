package http

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rtcscope/internal/core/domain"
	apperrors "rtcscope/pkg/errors"
)

const alertHistoryCap = 128

// DebugHandler serves the local read-only view of a session. It never
// touches the store: the monitor publishes each finished sample through
// Publish, and every route reads that published state.
type DebugHandler struct {
	clientID  domain.ClientID
	callID    domain.CallID
	startedAt time.Time

	latest atomic.Pointer[domain.ClientSample]

	mu     sync.Mutex
	alerts []domain.AlertEvent
}

func NewDebugHandler(clientID domain.ClientID, callID domain.CallID) *DebugHandler {
	return &DebugHandler{
		clientID:  clientID,
		callID:    callID,
		startedAt: time.Now(),
	}
}

// Publish records the cycle's sample. Hand it to Monitor.OnSample.
func (h *DebugHandler) Publish(sample *domain.ClientSample) {
	if sample == nil {
		return
	}
	h.latest.Store(sample)

	if len(sample.Alerts) == 0 {
		return
	}
	h.mu.Lock()
	h.alerts = append(h.alerts, sample.Alerts...)
	if over := len(h.alerts) - alertHistoryCap; over > 0 {
		h.alerts = append([]domain.AlertEvent(nil), h.alerts[over:]...)
	}
	h.mu.Unlock()
}

func (h *DebugHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/session", h.GetSession)
		api.GET("/peerconnections", h.ListPeerConnections)
		api.GET("/peerconnections/:id", h.GetPeerConnection)
		api.GET("/alerts", h.ListAlerts)
	}
}

func (h *DebugHandler) Health(c *gin.Context) {
	resp := gin.H{
		"status":         "ok",
		"client_id":      h.clientID,
		"call_id":        h.callID,
		"timestamp":      time.Now().Unix(),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}
	if sample := h.latest.Load(); sample != nil {
		resp["last_sample_seq"] = sample.SeqNo
		resp["last_sample_at"] = sample.Timestamp
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DebugHandler) GetSession(c *gin.Context) {
	sample := h.latest.Load()
	if sample == nil {
		c.Error(apperrors.NewServiceUnavailableError("no sample published yet"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client_id":        sample.ClientID,
		"call_id":          sample.CallID,
		"seq_no":           sample.SeqNo,
		"timestamp":        sample.Timestamp,
		"score":            sample.Score,
		"aggregates":       sample.Aggregates,
		"metadata":         sample.Metadata,
		"peer_connections": len(sample.PeerConnections),
	})
}

func (h *DebugHandler) ListPeerConnections(c *gin.Context) {
	sample := h.latest.Load()
	if sample == nil {
		c.Error(apperrors.NewServiceUnavailableError("no sample published yet"))
		return
	}

	summaries := make([]gin.H, 0, len(sample.PeerConnections))
	for _, pc := range sample.PeerConnections {
		summary := gin.H{
			"peer_connection_id": pc.PeerConnectionID,
			"collector_id":       pc.CollectorID,
			"label":              pc.Label,
			"score":              pc.Score,
			"inbound_rtps":       len(pc.InboundRTPs),
			"outbound_rtps":      len(pc.OutboundRTPs),
			"data_channels":      len(pc.DataChannels),
		}
		if pc.PeerConnection != nil && pc.PeerConnection.ConnectionState != nil {
			summary["connection_state"] = *pc.PeerConnection.ConnectionState
		}
		summaries = append(summaries, summary)
	}

	c.JSON(http.StatusOK, gin.H{
		"peer_connections": summaries,
	})
}

func (h *DebugHandler) GetPeerConnection(c *gin.Context) {
	sample := h.latest.Load()
	if sample == nil {
		c.Error(apperrors.NewServiceUnavailableError("no sample published yet"))
		return
	}

	id := c.Param("id")
	for i := range sample.PeerConnections {
		if sample.PeerConnections[i].PeerConnectionID == id {
			c.JSON(http.StatusOK, gin.H{
				"peer_connection": sample.PeerConnections[i],
			})
			return
		}
	}

	c.Error(apperrors.NewNotFoundError("peer connection"))
}

func (h *DebugHandler) ListAlerts(c *gin.Context) {
	h.mu.Lock()
	alerts := make([]domain.AlertEvent, len(h.alerts))
	copy(alerts, h.alerts)
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}
