package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vincentrandon/freelance-project-saas/errors"
	"github.com/vincentrandon/freelance-project-saas/logger"
)

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ErrorHandler converts errors attached to the gin context into JSON
// responses. Handlers add errors with c.Error and return; this middleware
// picks the last one and maps it to an HTTP status.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		log := logger.GetLogger()

		if appError, ok := err.(*errors.AppError); ok {
			statusCode := appError.GetHTTPStatus()

			log.Errorw("Request failed",
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"status", statusCode,
				"error_type", string(appError.Type),
				"error_message", appError.Message,
				"error_detail", appError.Detail,
				"request_id", c.GetString(RequestIDKey),
			)

			response := ErrorResponse{
				Type:    string(appError.Type),
				Message: appError.Message,
				Code:    strconv.Itoa(statusCode),
			}
			// Details carry user-actionable context for validation-class
			// errors; internal failure details stay in the logs.
			switch appError.Type {
			case errors.ValidationError, errors.NotFoundError,
				errors.ValidationConflictError, errors.StalePreviewError,
				errors.InvalidStatusTransitionError, errors.ApprovalTransactionFailedError,
				errors.ExtractionUnavailableError:
				response.Details = appError.Detail
			default:
				if gin.IsDebugging() {
					response.Details = appError.Detail
				}
			}
			c.JSON(statusCode, response)
			return
		}

		if c.Errors.Last().Type == gin.ErrorTypeBind {
			log.Errorw("Request binding error", "path", c.Request.URL.Path, "error", err)
			response := ErrorResponse{
				Type:    string(errors.ValidationError),
				Message: "Failed to bind request",
				Code:    "400",
			}
			if gin.IsDebugging() {
				response.Details = err.Error()
			}
			c.JSON(400, response)
			return
		}

		log.Errorw("Unexpected server error", "path", c.Request.URL.Path, "error", err)
		response := ErrorResponse{
			Type:    string(errors.ServerError),
			Message: "Internal Server Error",
			Code:    "500",
		}
		if gin.IsDebugging() {
			response.Details = err.Error()
		}
		c.JSON(500, response)
	}
}
