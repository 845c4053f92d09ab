// internal/utils/response.go
package utils

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tradebridge/marketplace-backend/internal/errs"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func BadRequestResponse(c *gin.Context, message string, details interface{}) {
	if message == "" {
		message = "Invalid request"
	}
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message, details)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func ForbiddenResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", message, nil)
}

func NotFoundResponse(c *gin.Context, resource string) {
	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", resource+" not found", nil)
}

func ConflictResponse(c *gin.Context, code, message string) {
	if code == "" {
		code = "CONFLICT"
	}
	ErrorResponse(c, http.StatusConflict, code, message, nil)
}

func InternalErrorResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, nil)
}

func ValidationErrorResponse(c *gin.Context, errors []ValidationError) {
	ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", errors)
}

// RespondError maps the service error taxonomy onto HTTP semantics:
// validation 400, conflict 409, authorization 403, provider-pending 202 with
// Retry-After, provider failure 502, unknown 500.
func RespondError(c *gin.Context, err error) {
	var validation *errs.ValidationError
	if errors.As(err, &validation) {
		ErrorResponse(c, http.StatusBadRequest, validation.Code, validation.Message, nil)
		return
	}

	var conflict *errs.ConflictError
	if errors.As(err, &conflict) {
		ErrorResponse(c, http.StatusConflict, conflict.Code, conflict.Message, nil)
		return
	}

	var authz *errs.AuthorizationError
	if errors.As(err, &authz) {
		ForbiddenResponse(c, authz.Message)
		return
	}

	if pending, ok := errs.AsProviderPending(err); ok {
		c.Header("Retry-After", strconv.Itoa(int(pending.RetryAfter.Seconds())))
		c.JSON(http.StatusAccepted, APIResponse{
			Success: false,
			Error: &APIError{
				Code:    "PROVIDER_PENDING",
				Message: pending.Error(),
			},
			Meta: gin.H{"retry_after_seconds": int(pending.RetryAfter.Seconds())},
		})
		return
	}

	var provider *errs.ProviderFailure
	if errors.As(err, &provider) {
		ErrorResponse(c, http.StatusBadGateway, "PROVIDER_FAILURE", provider.Error(), nil)
		return
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFoundResponse(c, "resource")
		return
	}

	InternalErrorResponse(c, err.Error())
}

func PaginatedResponse(c *gin.Context, result PaginationResult) {
	SetPaginationHeaders(c, result)
	SuccessResponseWithMeta(c, result.Data, gin.H{
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}
