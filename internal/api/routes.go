// Package api wires the controller's operations onto HTTP routes for the
// off-chain monitor.
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/rigwatch/custodian/internal/controller"
)

// RegisterRoutes registers all API routes on the echo instance.
func RegisterRoutes(e *echo.Echo, ctrl *controller.Controller) {
	h := NewHandlers(ctrl)

	e.GET("/health", h.HealthCheck)

	v1 := e.Group("/api/v1")

	// read-only surface polled by the monitor
	v1.GET("/status", h.GetStatus)
	v1.GET("/eligibility", h.GetEligibility)
	v1.GET("/events", h.GetEvents)

	// mutating operations, role-gated inside the controller
	v1.POST("/mine", h.ExecuteMine)
	v1.POST("/config", h.UpdateConfig)
	v1.POST("/emergency-stop", h.EmergencyStop)
	v1.POST("/rig", h.UpdateRig)
	v1.POST("/withdraw", h.Withdraw)
}
