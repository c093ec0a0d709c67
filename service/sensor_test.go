package service

import (
	"net/http"
	"testing"

	"fleetdata/dao/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorBulkCreateValidatesSettings(t *testing.T) {
	r := newTestRouter(t)
	vehicleID := uuid.New()

	w, env := doRequest(t, r, http.MethodPost, "/api/v1/sensors", gin.H{
		"sensors": []gin.H{
			{"vehicle_id": vehicleID, "type": int(model.SensorCamera), "name": "front-camera", "settings": `{"fps": 30}`},
			{"vehicle_id": vehicleID, "type": int(model.SensorLidar), "settings": `{broken`},
			{"vehicle_id": vehicleID, "type": int(model.SensorRadar), "settings": `{}`},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	result := decodeData[BulkResult](t, env)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Contains(t, result.Errors[0].Error, "settings")
}

func TestSensorUpdateRejectsMalformedSettings(t *testing.T) {
	r := newTestRouter(t)

	_, env := doRequest(t, r, http.MethodPost, "/api/v1/sensors", gin.H{
		"sensors": []gin.H{
			{"vehicle_id": uuid.New(), "type": int(model.SensorCamera), "settings": `{"fps": 30}`},
		},
	})
	id := decodeData[BulkResult](t, env).IDs[0]

	w, _ := doRequest(t, r, http.MethodPut, "/api/v1/sensors/"+id.String(), gin.H{
		"settings": `not json at all`,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The stored document is untouched by the rejected update.
	w, env = doRequest(t, r, http.MethodGet, "/api/v1/sensors/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"fps": 30}`, decodeData[model.Sensor](t, env).Settings)

	w, env = doRequest(t, r, http.MethodPut, "/api/v1/sensors/"+id.String(), gin.H{
		"settings": `{"fps": 60}`,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"fps": 60}`, decodeData[model.Sensor](t, env).Settings)
}

func TestSensorListByVehicle(t *testing.T) {
	r := newTestRouter(t)
	vehicleID := uuid.New()

	_, _ = doRequest(t, r, http.MethodPost, "/api/v1/sensors", gin.H{
		"sensors": []gin.H{
			{"vehicle_id": vehicleID, "type": int(model.SensorCamera), "settings": `{}`},
			{"vehicle_id": vehicleID, "type": int(model.SensorLidar), "settings": `{}`},
			{"vehicle_id": uuid.New(), "type": int(model.SensorCamera), "settings": `{}`},
		},
	})

	w, env := doRequest(t, r, http.MethodGet, "/api/v1/sensors?vehicle_id="+vehicleID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeData[[]model.Sensor](t, env), 2)
}
