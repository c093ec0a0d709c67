package service

import (
	"net/http"
	"testing"

	"fleetdata/dao/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverBulkCreatePartialFailure(t *testing.T) {
	r := newTestRouter(t)

	w, env := doRequest(t, r, http.MethodPost, "/api/v1/drivers", gin.H{
		"drivers": []gin.H{
			{"name": "Sato", "certification_level": 2, "certification_date": "2025-03-01"},
			{"name": "Tanaka", "license_expiry_date": "not-a-date"},
			{"name": "Suzuki"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	result := decodeData[BulkResult](t, env)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Contains(t, result.Errors[0].Error, "license_expiry_date")
}

func TestDriverListScoreFilter(t *testing.T) {
	r := newTestRouter(t)
	_, env := doRequest(t, r, http.MethodPost, "/api/v1/drivers", gin.H{
		"drivers": []gin.H{
			{"name": "Sato", "department": "autonomy"},
			{"name": "Tanaka", "department": "autonomy"},
			{"name": "Suzuki", "department": "mapping"},
		},
	})
	ids := decodeData[BulkResult](t, env).IDs
	require.Len(t, ids, 3)

	// Give the first driver a score through the update endpoint.
	w, _ := doRequest(t, r, http.MethodPut, "/api/v1/drivers/"+ids[0].String(), gin.H{
		"safety_score": 92.5,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = doRequest(t, r, http.MethodGet, "/api/v1/drivers?department=autonomy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeData[[]model.Driver](t, env), 2)

	w, env = doRequest(t, r, http.MethodGet, "/api/v1/drivers?min_safety_score=90", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decodeData[[]model.Driver](t, env)
	require.Len(t, rows, 1)
	assert.Equal(t, "Sato", rows[0].Name)
}

func TestDriverUpdateValidation(t *testing.T) {
	r := newTestRouter(t)
	_, env := doRequest(t, r, http.MethodPost, "/api/v1/drivers", gin.H{
		"drivers": []gin.H{{"name": "Sato"}},
	})
	id := decodeData[BulkResult](t, env).IDs[0]

	w, _ := doRequest(t, r, http.MethodPut, "/api/v1/drivers/"+id.String(), gin.H{
		"certification_level": 7,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doRequest(t, r, http.MethodPut, "/api/v1/drivers/"+id.String(), gin.H{
		"last_drive_date": "2025/01/01",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = doRequest(t, r, http.MethodPut, "/api/v1/drivers/"+id.String(), gin.H{
		"status":          int(model.DriverActive),
		"last_drive_date": "2025-08-20",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeData[model.Driver](t, env)
	assert.Equal(t, model.DriverActive, updated.Status)
	require.NotNil(t, updated.LastDriveDate)
}
