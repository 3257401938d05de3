package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// default messages per status
var statusMessages = map[int]string{
	http.StatusBadRequest:          "Invalid request",
	http.StatusUnauthorized:        "Unauthorized",
	http.StatusPaymentRequired:     "Insufficient credits",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Not found",
	http.StatusConflict:            "Conflict",
	http.StatusInternalServerError: "Internal server error",
}

// ErrorBody error payload of every failed API call
type ErrorBody struct {
	Error string `json:"error"`
}

// PageData paginated list
type PageData struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    interface{} `json:"items"`
}

func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{"success": true}
	}
	c.JSON(http.StatusOK, data)
}

// SuccessWithMessage {success: true, message: ...} plus optional extra fields
func SuccessWithMessage(c *gin.Context, message string, extra gin.H) {
	body := gin.H{"success": true, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func SuccessPage(c *gin.Context, total int64, page, pageSize int, items interface{}) {
	c.JSON(http.StatusOK, PageData{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    items,
	})
}

// Error writes {"error": message} and aborts the chain
func Error(c *gin.Context, status int, message string) {
	if message == "" {
		message = statusMessages[status]
	}
	c.AbortWithStatusJSON(status, ErrorBody{Error: message})
}

// ErrorWith adds fields next to the error message
func ErrorWith(c *gin.Context, status int, message string, extra gin.H) {
	if message == "" {
		message = statusMessages[status]
	}
	body := gin.H{"error": message}
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(status, body)
}

func ParamError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func AuthError(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// CreditsError balance does not cover the operation, cost is echoed back
func CreditsError(c *gin.Context, message string, cost int) {
	ErrorWith(c, http.StatusPaymentRequired, message, gin.H{"cost": cost})
}

func PermissionError(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

func NotFoundError(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

func ConflictError(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}
