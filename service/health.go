package service

import (
	"net/http"

	"fleetdata/dao/query"

	"github.com/gin-gonic/gin"
)

// Health reports service liveness and database reachability.
func Health(c *gin.Context) {
	dbStatus := "ok"
	httpCode := http.StatusOK

	sqlDB, err := query.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		dbStatus = "unavailable"
		httpCode = http.StatusServiceUnavailable
	}

	c.JSON(httpCode, gin.H{
		"status":   "ok",
		"database": dbStatus,
	})
}
