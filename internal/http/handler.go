package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cityfix-service/internal/service"
)

type Services struct {
	Tickets        *service.TicketService
	Notifications  *service.NotificationService
	Users          *service.UserService
	Municipalities *service.MunicipalityService
	Stats          *service.StatsService
	Media          *service.MediaService
	Geo            *service.GeoService
}

type Handler struct {
	ticketService       *service.TicketService
	notificationService *service.NotificationService
	userService         *service.UserService
	municipalityService *service.MunicipalityService
	statsService        *service.StatsService
	mediaService        *service.MediaService
	geoService          *service.GeoService
	log                 zerolog.Logger
}

func NewHandler(services Services, log zerolog.Logger) *Handler {
	return &Handler{
		ticketService:       services.Tickets,
		notificationService: services.Notifications,
		userService:         services.Users,
		municipalityService: services.Municipalities,
		statsService:        services.Stats,
		mediaService:        services.Media,
		geoService:          services.Geo,
		log:                 log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	public := r.Group("/")
	{
		public.POST("/auth/register", h.register)
		public.POST("/auth/login", h.login)
		public.POST("/tickets/anonymous", h.createAnonymousTicket)
		public.GET("/municipalities", h.listMunicipalities)
		public.GET("/municipalities/:id", h.getMunicipality)
		public.GET("/municipalities/:id/boundary", h.getBoundary)
		public.GET("/geo/geocode", h.geocode)
		public.GET("/geo/reverse", h.reverseGeocode)
	}

	protected := r.Group("/")
	protected.Use(authMiddleware)

	protected.GET("/auth/me", h.me)

	tickets := protected.Group("/tickets")
	{
		tickets.POST("", h.createTicket)
		tickets.GET("", h.listTickets)
		tickets.GET("/:id", h.getTicket)
		tickets.PATCH("/:id", h.patchTicket)
		tickets.POST("/:id/assign", h.assignTicket)
		tickets.POST("/:id/complete", h.completeTicket)
		tickets.POST("/:id/reject", h.rejectTicket)
		tickets.GET("/:id/comments", h.listComments)
		tickets.POST("/:id/comments", h.addComment)
		tickets.POST("/:id/feedback", h.addFeedback)
		tickets.GET("/:id/media", h.listMedia)
		tickets.POST("/:id/media", h.uploadMedia)
	}

	protected.GET("/media/:id", h.downloadMedia)

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.listNotifications)
		notifications.GET("/unread-count", h.unreadCount)
		notifications.PUT("/read-all", h.markAllRead)
		notifications.GET("/preferences", h.getPreferences)
		notifications.PUT("/preferences", h.updatePreferences)
		notifications.PUT("/:id/read", h.markRead)
		notifications.DELETE("/:id", h.deleteNotification)
	}

	users := protected.Group("/users")
	{
		users.GET("/operators", h.listOperators)
		users.POST("/staff", h.createStaff)
	}

	municipalities := protected.Group("/municipalities")
	{
		municipalities.POST("", h.createMunicipality)
		municipalities.PUT("/:id", h.updateMunicipality)
		municipalities.DELETE("/:id", h.deleteMunicipality)
		municipalities.PUT("/:id/boundary", h.setBoundary)
	}

	stats := protected.Group("/stats")
	{
		stats.GET("/dashboard", h.dashboard)
		stats.GET("/consortium", h.consortium)
		stats.GET("/overview", h.overview)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, errorResponse("unauthorized", err.Error()))
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse("permission_denied", err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, service.ErrInvalidStateTransition):
		c.JSON(http.StatusConflict, errorResponse("invalid_state_transition", err.Error()))
	case errors.Is(err, service.ErrFeedbackAlreadyExists):
		c.JSON(http.StatusConflict, errorResponse("feedback_already_exists", err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse("conflict", err.Error()))
	case errors.Is(err, service.ErrScopeMismatch):
		c.JSON(http.StatusUnprocessableEntity, errorResponse("scope_mismatch", err.Error()))
	case errors.Is(err, service.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorResponse("service_unavailable", err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Str("request_id", c.GetString("request_id")).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": message,
		"code":  code,
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorResponse("validation_error", message))
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing principal"))
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// parseOptionalUUID reads a query parameter; an empty value yields nil.
func parseOptionalUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &id, true
}

func parseFloatQuery(c *gin.Context, name string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Query(name)), 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntQuery(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}
