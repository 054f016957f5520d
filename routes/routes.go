package routes

import (
	"tourbook/handlers"
	"tourbook/middleware"
	"tourbook/models"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers every endpoint the server exposes.
func RegisterRoutes(r *gin.Engine, bh *handlers.BookingHandler) {
	r.GET("/health", bh.Health)

	RegisterBookingRoutes(r, bh)
	RegisterPaymentRoutes(r, bh)
}

// RegisterBookingRoutes registers the booking lifecycle endpoints.
func RegisterBookingRoutes(r *gin.Engine, bh *handlers.BookingHandler) {
	api := r.Group("/api/bookings")
	api.Use(middleware.ActorMiddleware())
	{
		api.POST("", bh.CreateBooking)
		api.GET("", bh.ListBookings)
		api.GET("/:id", bh.GetBooking)
		api.POST("/:id/payment", bh.InitiatePayment)
		api.POST("/:id/cancel", bh.CancelBooking)
	}

	staff := r.Group("/api/staff/bookings")
	staff.Use(middleware.ActorMiddleware(), middleware.RequireRole(models.RoleStaff, models.RoleAdmin))
	{
		staff.POST("/:id/confirm", bh.StaffConfirmPayment)
		staff.GET("/:id/attempts", bh.ListAttempts)
	}

	admin := r.Group("/api/admin/bookings")
	admin.Use(middleware.ActorMiddleware(), middleware.RequireRole(models.RoleAdmin))
	{
		admin.DELETE("/:id", bh.DeleteBooking)
	}
}

// RegisterPaymentRoutes registers the gateway-facing callback endpoints.
// These carry their own cryptographic authentication, so no auth middleware.
func RegisterPaymentRoutes(r *gin.Engine, bh *handlers.BookingHandler) {
	pay := r.Group("/api/payment")
	{
		pay.GET("/ipn/:provider", bh.GatewayIPN)
		pay.POST("/ipn/:provider", bh.GatewayIPN)
		pay.GET("/return/:provider", bh.PaymentReturn)
	}
}
