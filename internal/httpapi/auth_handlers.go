package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tourguard-backend/internal/repository"
	"tourguard-backend/internal/service"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	User  interface{} `json:"user"`
	Token string      `json:"token"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "email, name and password are required")
		return
	}

	user, token, err := s.auth.Register(c.Request.Context(), req.Email, req.Name, req.Phone, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			respondError(c, http.StatusConflict, "email is already registered")
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	respondOK(c, http.StatusCreated, authResponse{User: user, Token: token}, "Registration successful")
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "email and password are required")
		return
	}

	user, token, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.logger.Error("Login failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "login failed")
		return
	}

	respondOK(c, http.StatusOK, authResponse{User: user, Token: token}, "Login successful")
}

func (s *Server) handleMe(c *gin.Context) {
	user, err := s.auth.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("Failed to load user", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to load user")
		return
	}

	respondOK(c, http.StatusOK, user, "")
}
