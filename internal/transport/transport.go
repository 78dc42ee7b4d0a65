package transport

import (
	"github.com/ds124wfegd/event-booker/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers groups everything InitRoutes mounts.
type Handlers struct {
	Events   *EventHandler
	Bookings *BookingHandler
	Users    *UserHandler
	Admin    *AdminHandler
}

func InitRoutes(h *Handlers, tokens middleware.TokenParser, requestTimeout int) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(requestTimeout))

	authRequired := middleware.Auth(tokens)
	adminOnly := middleware.RequireAdmin()

	// API routes
	api := router.Group("/api")
	{
		// User routes
		users := api.Group("/users")
		{
			users.POST("/register", h.Users.Register)
			users.POST("/login", h.Users.Login)
			users.GET("", authRequired, adminOnly, h.Users.GetAllUsers)
			users.GET("/:id", authRequired, h.Users.GetUser)
			users.PUT("/:id", authRequired, h.Users.UpdateUser)
			users.DELETE("/:id", authRequired, h.Users.DeleteUser)
		}

		// Event routes
		events := api.Group("/events")
		{
			events.GET("", h.Events.GetAllEvents)
			events.GET("/:id", h.Events.GetEvent)
			events.POST("", authRequired, h.Events.CreateEvent)
			events.PUT("/:id", authRequired, h.Events.UpdateEvent)
			events.DELETE("/:id", authRequired, h.Events.DeleteEvent)
		}

		// Booking routes
		bookings := api.Group("/bookings", authRequired)
		{
			bookings.GET("", adminOnly, h.Bookings.GetAllBookings)
			bookings.GET("/my-history", h.Bookings.GetMyHistory)
			bookings.GET("/:id", h.Bookings.GetBooking)
			bookings.POST("", h.Bookings.CreateBooking)
			bookings.PUT("/:id", h.Bookings.UpdateBooking)
			bookings.DELETE("/:id", h.Bookings.CancelBooking)
		}

		// Admin routes
		admin := api.Group("/admin", authRequired, adminOnly)
		{
			admin.GET("/tasks/stats", h.Admin.GetQueueStats)
			admin.GET("/tasks/failed", h.Admin.GetFailedTasks)
			admin.POST("/tasks/failed/:id/requeue", h.Admin.RequeueTask)
		}
	}

	// Health check
	router.GET("/health", h.Admin.Health)

	return router
}
