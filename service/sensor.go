package service

import (
	"encoding/json"

	"fleetdata/apperr"
	"fleetdata/dao/model"
	"fleetdata/dao/query"
	"fleetdata/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SensorCreate struct {
	VehicleID uuid.UUID        `json:"vehicle_id" binding:"required"`
	Type      model.SensorType `json:"type" binding:"min=0,max=32767"`
	Name      *string          `json:"name"`
	Settings  string           `json:"settings" binding:"required"`
}

type SensorBulkCreate struct {
	Sensors []SensorCreate `json:"sensors" binding:"required,min=1"`
}

type SensorUpdate struct {
	VehicleID *uuid.UUID        `json:"vehicle_id"`
	Type      *model.SensorType `json:"type"`
	Name      *string           `json:"name"`
	Settings  *string           `json:"settings"`
}

// CreateSensors bulk-creates sensor settings records. Each settings field
// must be a parseable JSON document; invalid rows are reported, not fatal.
func CreateSensors(c *gin.Context) {
	var req SensorBulkCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if len(req.Sensors) > BulkInsertMax {
		fail(c, apperr.Validation("too many sensors, maximum allowed: %d", BulkInsertMax))
		return
	}

	result := BulkResult{IDs: []uuid.UUID{}, Errors: []BulkError{}}
	rows := make([]*model.Sensor, 0, len(req.Sensors))
	indexes := make([]int, 0, len(req.Sensors))
	for i, s := range req.Sensors {
		if !json.Valid([]byte(s.Settings)) {
			result.Errors = append(result.Errors, BulkError{Index: i, Error: "settings must be a valid JSON string"})
			continue
		}
		rows = append(rows, &model.Sensor{
			VehicleID: s.VehicleID,
			Type:      s.Type,
			Name:      s.Name,
			Settings:  s.Settings,
		})
		indexes = append(indexes, i)
	}

	inserted := bulkInsert(c.Request.Context(), query.DB, rows)
	result.IDs = inserted.IDs
	for _, e := range inserted.Errors {
		result.Errors = append(result.Errors, BulkError{Index: indexes[e.Index], Error: e.Error})
	}
	result.Created = len(result.IDs)
	result.Failed = len(result.Errors)
	response.Created(c, result)
}

func ListSensors(c *gin.Context) {
	var q struct {
		VehicleID string `form:"vehicle_id"`
		Type      *int16 `form:"type"`
		Name      string `form:"name"`
		Limit     int    `form:"limit"`
		Offset    int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	startTime, err := parseTimeQuery(c, "start_time")
	if err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	endTime, err := parseTimeQuery(c, "end_time")
	if err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	tx := query.DB.WithContext(c.Request.Context()).Model(&model.Sensor{})
	if q.VehicleID != "" {
		vid, perr := uuid.Parse(q.VehicleID)
		if perr != nil {
			response.BadRequestError(c, "invalid vehicle_id")
			return
		}
		tx = tx.Where("vehicle_id = ?", vid)
	}
	if q.Type != nil {
		tx = tx.Where("type = ?", *q.Type)
	}
	if q.Name != "" {
		tx = tx.Where("name LIKE ?", "%"+q.Name+"%")
	}
	if startTime != nil {
		tx = tx.Where("created_at >= ?", startTime.Unix())
	}
	if endTime != nil {
		tx = tx.Where("created_at <= ?", endTime.Unix())
	}

	limit, offset := clampPage(q.Limit, q.Offset, 100, 1000)
	var rows []model.Sensor
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		fail(c, apperr.Internal("failed to list sensors", err))
		return
	}
	response.Success(c, rows)
}

func GetSensor(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	row, ok := fetchByID[model.Sensor](c, id, "sensor")
	if !ok {
		return
	}
	response.Success(c, row)
}

func UpdateSensor(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req SensorUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if req.Settings != nil && !json.Valid([]byte(*req.Settings)) {
		fail(c, apperr.Validation("settings must be a valid JSON string"))
		return
	}
	row, ok := fetchByID[model.Sensor](c, id, "sensor")
	if !ok {
		return
	}
	if req.VehicleID != nil {
		row.VehicleID = *req.VehicleID
	}
	if req.Type != nil {
		row.Type = *req.Type
	}
	if req.Name != nil {
		row.Name = req.Name
	}
	if req.Settings != nil {
		row.Settings = *req.Settings
	}
	if err := query.DB.WithContext(c.Request.Context()).Save(row).Error; err != nil {
		fail(c, apperr.Internal("failed to update sensor", err))
		return
	}
	response.Success(c, row)
}

func DeleteSensor(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	deleteByID[model.Sensor](c, id, "sensor")
}

func RegisterSensor(rg *gin.RouterGroup) {
	g := rg.Group("/sensors")
	g.POST("", CreateSensors)
	g.GET("", ListSensors)
	g.GET("/:id", GetSensor)
	g.PUT("/:id", UpdateSensor)
	g.DELETE("/:id", DeleteSensor)
}
