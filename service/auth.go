package service

import (
	"net/http"
	"strings"

	"fleetdata/config"
	"fleetdata/response"
	"fleetdata/util"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// AuthMiddleware validates the HS256 bearer token when a token secret is
// configured; otherwise it is a pass-through. A valid token's user id is
// stashed on the context for created_by audit fields.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetConfig().Auth.TokenSecret == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			response.HTTPError(c, http.StatusUnauthorized, "missing bearer token", response.InvalidToken)
			c.Abort()
			return
		}
		msg, err := util.GetTokenMgr().CheckToken(token)
		if err != nil {
			response.HTTPError(c, http.StatusUnauthorized, "invalid token", response.InvalidToken)
			c.Abort()
			return
		}
		if msg.UserID != "" {
			c.Set(userIDKey, msg.UserID)
		}
		c.Next()
	}
}

// requestUser returns the authenticated user id, if any.
func requestUser(c *gin.Context) *string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return &s
		}
	}
	return nil
}
