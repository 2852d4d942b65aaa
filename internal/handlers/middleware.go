package handlers

import (
	"net/http"
	"strings"

	"smart_climate/internal/service"

	"github.com/gin-gonic/gin"
)

// operatorKey is the gin context key holding the authenticated service.Operator.
const operatorKey = "operator"

// authMiddleware accepts "Authorization: Bearer <jwt>" and attaches the
// operator to both the gin context and the request context, so climate
// changes downstream are attributed to it.
func (h *Handler) authMiddleware(c *gin.Context) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
		return
	}

	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header format"})
		return
	}

	op, err := h.services.Authenticate(token)
	if err != nil {
		if h.log != nil {
			h.log.Infow("auth_token_rejected", "path", c.FullPath(), "err", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	c.Set(operatorKey, op)
	c.Request = c.Request.WithContext(service.WithOperator(c.Request.Context(), op))
	c.Next()
}

// operatorFrom returns the operator set by authMiddleware.
func operatorFrom(c *gin.Context) (service.Operator, bool) {
	v, ok := c.Get(operatorKey)
	if !ok {
		return service.Operator{}, false
	}
	op, ok := v.(service.Operator)
	return op, ok
}
