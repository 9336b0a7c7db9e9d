package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tourguard-backend/internal/models"
	"tourguard-backend/internal/repository"
	"tourguard-backend/internal/service"
)

// maxGPXSize bounds GPX uploads to 5 MiB.
const maxGPXSize = 5 << 20

func (s *Server) handleCreateTour(c *gin.Context) {
	var input service.TourInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "invalid tour payload")
		return
	}

	tour, err := s.tours.Create(c.Request.Context(), currentUserID(c), input)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	respondOK(c, http.StatusCreated, tour, "Tour created")
}

func (s *Server) handleListTours(c *gin.Context) {
	tours, err := s.tours.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.logger.Error("Failed to list tours", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to list tours")
		return
	}
	if tours == nil {
		tours = []*models.Tour{}
	}

	respondOK(c, http.StatusOK, tours, "")
}

func (s *Server) handleGetTour(c *gin.Context) {
	tour, err := s.tours.Get(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		s.respondTourError(c, err, "failed to load tour")
		return
	}

	respondOK(c, http.StatusOK, tour, "")
}

func (s *Server) handleUpdateTour(c *gin.Context) {
	var input service.TourInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "invalid tour payload")
		return
	}

	tour, err := s.tours.Update(c.Request.Context(), c.Param("id"), currentUserID(c), input)
	if err != nil {
		if errors.Is(err, repository.ErrTourNotFound) {
			respondError(c, http.StatusNotFound, "tour not found")
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	respondOK(c, http.StatusOK, tour, "Tour updated")
}

func (s *Server) handleDeleteTour(c *gin.Context) {
	if err := s.tours.Delete(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		s.respondTourError(c, err, "failed to delete tour")
		return
	}

	respondOK(c, http.StatusOK, nil, "Tour deleted")
}

func (s *Server) handleCheckIn(c *gin.Context) {
	tour, err := s.tours.CheckIn(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		s.respondTourError(c, err, "failed to check in")
		return
	}

	respondOK(c, http.StatusOK, tour, "Checked in")
}

func (s *Server) handleCheckOut(c *gin.Context) {
	tour, err := s.tours.CheckOut(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		s.respondTourError(c, err, "failed to check out")
		return
	}

	respondOK(c, http.StatusOK, tour, "Checked out")
}

func (s *Server) handleUploadGPX(c *gin.Context) {
	file, _, err := c.Request.FormFile("gpx")
	if err != nil {
		respondError(c, http.StatusBadRequest, "gpx file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxGPXSize+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read gpx file")
		return
	}
	if len(content) > maxGPXSize {
		respondError(c, http.StatusRequestEntityTooLarge, "gpx file too large")
		return
	}

	route, err := s.tours.AttachGPX(c.Request.Context(), c.Param("id"), currentUserID(c), content)
	if err != nil {
		if errors.Is(err, repository.ErrTourNotFound) {
			respondError(c, http.StatusNotFound, "tour not found")
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	respondOK(c, http.StatusOK, route, "Route imported")
}

func (s *Server) handleEmergencyInfo(c *gin.Context) {
	data, err := s.tours.EmergencyInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondTourError(c, err, "failed to load emergency data")
		return
	}

	respondOK(c, http.StatusOK, data, "")
}

func (s *Server) handleListNotifications(c *gin.Context) {
	// Ownership check first; the delivery log itself has no user column.
	if _, err := s.tours.Get(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		s.respondTourError(c, err, "failed to load tour")
		return
	}

	notifications, err := s.deliveries.ListByTour(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.logger.Error("Failed to list notifications", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}

	respondOK(c, http.StatusOK, notifications, "")
}

func (s *Server) handleTestNotification(c *gin.Context) {
	var req struct {
		TourID string `json:"tourId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "tourId is required")
		return
	}

	tour, err := s.tours.Get(c.Request.Context(), req.TourID, currentUserID(c))
	if err != nil {
		s.respondTourError(c, err, "failed to load tour")
		return
	}

	if err := s.alerts.SendOverdueAlert(c.Request.Context(), tour); err != nil {
		respondError(c, http.StatusBadGateway, err.Error())
		return
	}

	respondOK(c, http.StatusOK, nil, "Test notification sent")
}

// respondTourError maps the service error taxonomy onto HTTP status codes.
func (s *Server) respondTourError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrTourNotFound):
		respondError(c, http.StatusNotFound, "tour not found")
	case errors.Is(err, models.ErrInvalidTransition):
		respondError(c, http.StatusConflict, "tour is not in a state that allows this action")
	default:
		s.logger.Error("Tour request failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, fallback)
	}
}
