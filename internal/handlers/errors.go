package handlers

import (
	"errors"
	"net/http"

	"restaurant_pos_backend/internal/services"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// serviceErrorStatus maps service sentinel errors onto HTTP responses.
var serviceErrorStatus = []struct {
	target error
	status int
	code   string
}{
	{services.ErrValidation, http.StatusBadRequest, utils.ErrCodeValidationFailed},
	{services.ErrInvalidOrderStatus, http.StatusBadRequest, utils.ErrCodeValidationFailed},
	{services.ErrInvalidTableStatus, http.StatusBadRequest, utils.ErrCodeValidationFailed},
	{services.ErrInsufficientPayment, http.StatusBadRequest, utils.ErrCodeValidationFailed},
	{services.ErrTotalsMismatch, http.StatusUnprocessableEntity, utils.ErrCodeValidationFailed},
	{services.ErrOrderNotFound, http.StatusNotFound, utils.ErrCodeNotFound},
	{services.ErrTableNotFound, http.StatusNotFound, utils.ErrCodeNotFound},
	{services.ErrProductNotFound, http.StatusNotFound, utils.ErrCodeNotFound},
	{services.ErrCustomerNotFound, http.StatusNotFound, utils.ErrCodeNotFound},
	{services.ErrEmployeeNotFound, http.StatusNotFound, utils.ErrCodeNotFound},
	{services.ErrInvalidStatusTransition, http.StatusConflict, utils.ErrCodeConflict},
	{services.ErrOrderNotSplittable, http.StatusConflict, utils.ErrCodeConflict},
	{services.ErrOrderVersionConflict, http.StatusConflict, utils.ErrCodeConflict},
	{services.ErrDuplicateOrderNumber, http.StatusConflict, utils.ErrCodeConflict},
	{services.ErrDuplicateRecord, http.StatusConflict, utils.ErrCodeConflict},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, utils.ErrCodeUnauthorized},
	{services.ErrInvalidToken, http.StatusUnauthorized, utils.ErrCodeUnauthorized},
}

// respondServiceError writes the response for err. Unknown errors become a
// 500 carrying message, with err itself only logged.
func respondServiceError(c *gin.Context, err error, message string) {
	for _, m := range serviceErrorStatus {
		if errors.Is(err, m.target) {
			utils.LogWarn(err, message, map[string]interface{}{"request_id": c.GetString(utils.RequestIDKey), "status": m.status})
			utils.RespondWithError(c, utils.NewAPIError(m.status, m.code, m.target.Error(), err.Error()))
			return
		}
	}
	utils.RespondInternalError(c, err, message)
}

func respondBindError(c *gin.Context, err error, handler string) {
	utils.LogWarn(err, handler+": Failed to bind request", map[string]interface{}{"request_id": c.GetString(utils.RequestIDKey)})
	utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload", err.Error()))
}

// pathID parses the :id route parameter and responds with 400 when it is not
// a positive integer.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" ID format.", err.Error()))
		return 0, false
	}
	return id, true
}

// currentEmployeeID returns the authenticated employee, if any.
func currentEmployeeID(c *gin.Context) *int64 {
	raw, exists := c.Get(utils.EmployeeIDKey)
	if !exists {
		return nil
	}
	id, ok := raw.(int64)
	if !ok || id <= 0 {
		return nil
	}
	return &id
}
