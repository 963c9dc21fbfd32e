// internal/api/handlers/auth_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/frmerp/fiscal-engine/internal/api/responses"
	"github.com/frmerp/fiscal-engine/internal/core/auth"
	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service auth.Service
}

func NewAuthHandler(service auth.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, http.StatusBadRequest, "Requisição inválida")
		return
	}

	token, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrCredenciaisInvalidas) {
		responses.Error(c, http.StatusUnauthorized, err.Error())
		return
	}
	if errors.Is(err, domain.ErrFalhaColaborador) {
		responses.Error(c, http.StatusBadGateway, "Erro ao consultar o banco de dados")
		return
	}
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	responses.Success(c, gin.H{"token": token}, "Login realizado com sucesso")
}
