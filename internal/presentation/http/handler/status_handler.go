package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/opentill/terminal/internal/application/service"
	"github.com/opentill/terminal/internal/presentation/http/dto/response"
)

// StatusHandler exposes the terminal's connectivity and queue state so the
// register UI can show the offline banner and pending-sync counter.
type StatusHandler struct {
	conn     *service.ConnectivityService
	sync     *service.SyncService
	session  *service.Session
	sessions *service.SessionService
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(conn *service.ConnectivityService, sync *service.SyncService, session *service.Session, sessions *service.SessionService) *StatusHandler {
	return &StatusHandler{conn: conn, sync: sync, session: session, sessions: sessions}
}

// Get returns the current terminal status.
func (h *StatusHandler) Get(c *gin.Context) {
	pending, err := h.sync.PendingCount(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	device := h.session.Device()
	response.OK(c, "Status", gin.H{
		"mode":         h.conn.Mode().String(),
		"online":       h.conn.Online(),
		"pendingSync":  pending,
		"deviceId":     device.DeviceID,
		"deviceName":   device.Name,
		"locationId":   device.LocationID,
		"currencyCode": h.session.Config().CurrencyCode,
	})
}

// ForceOffline drops the terminal to offline mode on operator request, e.g.
// before a known network outage.
func (h *StatusHandler) ForceOffline(c *gin.Context) {
	h.conn.ForceOffline("operator request")
	response.OK(c, "Terminal offline", gin.H{"mode": h.conn.Mode().String()})
}

// Decommission removes this device's server registration and wipes its local
// identity.
func (h *StatusHandler) Decommission(c *gin.Context) {
	if err := h.sessions.Decommission(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Device decommissioned", nil)
}
