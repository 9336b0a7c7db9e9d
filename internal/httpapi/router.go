package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tourguard-backend/internal/models"
	"tourguard-backend/internal/service"
)

// AuthAPI is the auth surface the handlers need.
type AuthAPI interface {
	Register(ctx context.Context, email, name, phone, password string) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	VerifyToken(ctx context.Context, token string) (string, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// TourAPI is the tour surface the handlers need.
type TourAPI interface {
	Create(ctx context.Context, userID string, input service.TourInput) (*models.Tour, error)
	Get(ctx context.Context, id, userID string) (*models.Tour, error)
	List(ctx context.Context, userID string) ([]*models.Tour, error)
	Update(ctx context.Context, id, userID string, input service.TourInput) (*models.Tour, error)
	Delete(ctx context.Context, id, userID string) error
	CheckIn(ctx context.Context, id, userID string) (*models.Tour, error)
	CheckOut(ctx context.Context, id, userID string) (*models.Tour, error)
	AttachGPX(ctx context.Context, id, userID string, content []byte) (*models.RouteData, error)
	EmergencyInfo(ctx context.Context, id string) (*service.EmergencyData, error)
}

// AlertAPI dispatches overdue alerts; exposed for the test-notification
// endpoint.
type AlertAPI interface {
	SendOverdueAlert(ctx context.Context, tour *models.Tour) error
}

// DeliveryLog reads the SMS delivery history of a tour.
type DeliveryLog interface {
	ListByTour(ctx context.Context, tourID string) ([]*models.Notification, error)
}

// Server wires the HTTP layer to the services.
type Server struct {
	auth       AuthAPI
	tours      TourAPI
	alerts     AlertAPI
	deliveries DeliveryLog
	logger     *zap.Logger
}

// NewServer creates the HTTP server facade.
func NewServer(auth AuthAPI, tours TourAPI, alerts AlertAPI, deliveries DeliveryLog, logger *zap.Logger) *Server {
	return &Server{
		auth:       auth,
		tours:      tours,
		alerts:     alerts,
		deliveries: deliveries,
		logger:     logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router(frontendURL string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{frontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.handleRegister)
			auth.POST("/login", s.handleLogin)
			auth.GET("/me", s.Authenticated(), s.handleMe)
		}

		tours := api.Group("/tours", s.Authenticated())
		{
			tours.POST("", s.handleCreateTour)
			tours.GET("", s.handleListTours)
			tours.GET("/:id", s.handleGetTour)
			tours.PUT("/:id", s.handleUpdateTour)
			tours.DELETE("/:id", s.handleDeleteTour)
			tours.POST("/:id/checkin", s.handleCheckIn)
			tours.POST("/:id/checkout", s.handleCheckOut)
			tours.POST("/:id/gpx", s.handleUploadGPX)
			tours.GET("/:id/notifications", s.handleListNotifications)
		}

		// Public: reached through the link in the alert SMS.
		api.GET("/tours/:id/emergency", s.handleEmergencyInfo)

		api.POST("/notifications/test", s.Authenticated(), s.handleTestNotification)
	}

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
