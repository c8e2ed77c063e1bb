// internal/app/router.go
package app

import (
	"context"
	"net/http"
	"time"

	maintenanceHandler "fleetrent-service/internal/handlers/maintenance"
	notifyHandler "fleetrent-service/internal/handlers/notification"
	reservationHandler "fleetrent-service/internal/handlers/reservation"
	vehicleHandler "fleetrent-service/internal/handlers/vehicle"
	wsHandler "fleetrent-service/internal/handlers/websocket"
	"fleetrent-service/internal/middleware"
	"fleetrent-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	ReservationHandler *reservationHandler.ReservationHandler
	VehicleHandler     *vehicleHandler.VehicleHandler
	MaintenanceHandler *maintenanceHandler.MaintenanceHandler
	NotifHandler       *notifyHandler.NotificationHandler
	WSHandler          *wsHandler.WebSocketHandler
	AuthMiddleware     *middleware.AuthMiddleware
	Database           Pinger
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		if h.Database != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := h.Database.Ping(ctx); err != nil {
				logger.Error("health check failed", zap.Error(err))
				response.Error(c, http.StatusServiceUnavailable, "database unreachable", nil)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	authenticated := api.Group("")
	authenticated.Use(h.AuthMiddleware.Auth())

	// ==================== Vehicles ====================
	vehicles := authenticated.Group("/vehicles/:id")
	{
		vehicles.GET("/availability", h.VehicleHandler.CheckAvailability)
		vehicles.GET("/calendar", h.VehicleHandler.GetCalendar)
		vehicles.POST("/quote", h.VehicleHandler.Quote)
	}

	// ==================== Reservations ====================
	reservations := authenticated.Group("/reservations")
	{
		reservations.POST("", h.ReservationHandler.CreateReservation)
		reservations.GET("", h.ReservationHandler.ListReservations)
		reservations.GET("/:id", h.ReservationHandler.GetReservation)
		reservations.PATCH("/:id/status", h.ReservationHandler.TransitionStatus)

		// Payment outcomes are reported by the gateway integration or staff
		payment := reservations.Group("/:id/payment")
		{
			payment.POST("/paid", h.ReservationHandler.MarkPaid())
			payment.POST("/failed", h.ReservationHandler.MarkFailed())
			payment.POST("/retry", h.ReservationHandler.RetryPayment())
			payment.POST("/refund", h.ReservationHandler.Refund())
		}
	}

	// ==================== Notifications ====================
	notifications := authenticated.Group("/notifications")
	{
		notifications.GET("", h.NotifHandler.GetNotifications)
		notifications.GET("/unread-count", h.NotifHandler.GetUnreadCount)
		notifications.PUT("/read-all", h.NotifHandler.MarkAllAsRead)
		notifications.PUT("/:id/read", h.NotifHandler.MarkAsRead)
		notifications.DELETE("/:id", h.NotifHandler.DeleteNotification)
	}

	// ==================== Admin ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.StaffOnly()...)
	{
		admin.POST("/reservations/manual", h.ReservationHandler.CreateManualReservation)

		admin.POST("/vehicles/:id/maintenance", h.MaintenanceHandler.CreateBlock)
		admin.GET("/vehicles/:id/maintenance", h.MaintenanceHandler.ListBlocks)
		admin.DELETE("/maintenance/:id", h.MaintenanceHandler.DeleteBlock)

		admin.GET("/ws/stats", h.WSHandler.GetStats)
	}
}
