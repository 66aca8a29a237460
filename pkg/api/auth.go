package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sells-group/pharma-pipeline/pkg/config"
)

const apiKeyHeader = "X-API-Key"

const scopeKey = "apiKeyScope"

// requireScope builds middleware that looks up the caller's API key against
// the configured static key table and rejects the request if the key is
// missing, unknown, or lacks the named scope (spec §6's 401/403 pair).
func requireScope(keys map[string]config.APIKeyScope, need func(config.APIKeyScope) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(apiKeyHeader)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing_api_key"})
			return
		}
		scope, ok := keys[key]
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid_api_key"})
			return
		}
		if !need(scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: "insufficient_scope"})
			return
		}
		c.Set(scopeKey, scope)
		c.Next()
	}
}

func canSubmit(s config.APIKeyScope) bool { return s.CanSubmit }
func canRead(s config.APIKeyScope) bool   { return s.CanRead }
func canCancel(s config.APIKeyScope) bool { return s.CanCancel }
