// Package httputil provides shared HTTP response helpers.
package httputil

import "github.com/gin-gonic/gin"

// RespondError writes a standardized JSON error response and aborts the request.
func RespondError(c *gin.Context, status int, code, message string) {
	RespondErrorWith(c, status, code, message, nil)
}

// RespondErrorWith writes a standardized JSON error response carrying extra
// fields and aborts the request. The code, message and request_id fields
// cannot be overridden by extra.
func RespondErrorWith(c *gin.Context, status int, code, message string, extra gin.H) {
	resp := make(gin.H, len(extra)+3)
	for k, v := range extra {
		resp[k] = v
	}

	resp["code"] = code
	resp["message"] = message

	if rid, exists := c.Get("request_id"); exists {
		if s, ok := rid.(string); ok && s != "" {
			resp["request_id"] = s
		}
	}

	c.AbortWithStatusJSON(status, resp)
}
