package handlers

import (
	"net/http"

	"restaurant_pos_backend/internal/services"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service.
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(as services.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

// RegisterEmployee creates a staff account. Admin only.
func (h *AuthHandler) RegisterEmployee(c *gin.Context) {
	var req services.RegisterEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "RegisterEmployee")
		return
	}

	employee, err := h.authService.RegisterEmployee(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "Failed to register employee.")
		return
	}
	c.JSON(http.StatusCreated, employee)
}

// Login handles employee login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Login")
		return
	}

	authResp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "Failed to login.")
		return
	}
	c.JSON(http.StatusOK, authResp)
}

// RefreshToken exchanges a refresh token for a new token pair.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req services.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "RefreshToken")
		return
	}

	authResp, err := h.authService.RefreshAccessToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err, "Failed to refresh token.")
		return
	}
	c.JSON(http.StatusOK, authResp)
}

// GetCurrentEmployee retrieves the profile of the authenticated employee.
func (h *AuthHandler) GetCurrentEmployee(c *gin.Context) {
	employeeID := currentEmployeeID(c)
	if employeeID == nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Employee not authenticated.", "Missing employee ID in context"))
		return
	}

	employee, err := h.authService.GetProfile(c.Request.Context(), *employeeID)
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve employee profile for ID "+utils.Int64ToStr(*employeeID))
		return
	}
	c.JSON(http.StatusOK, employee)
}

// Logout acknowledges a logout. Tokens are stateless, so the client
// discards them.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully. Please discard your token."})
}
