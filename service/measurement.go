package service

import (
	"time"

	"fleetdata/apperr"
	"fleetdata/dao/model"
	"fleetdata/dao/query"
	"fleetdata/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MeasurementCreate struct {
	VehicleID  uuid.UUID `json:"vehicle_id" binding:"required"`
	AreaID     uuid.UUID `json:"area_id" binding:"required"`
	LocalTime  time.Time `json:"local_time" binding:"required"`
	MeasuredAt int64     `json:"measured_at" binding:"required"`
	DataPath   *string   `json:"data_path"`
}

type MeasurementBulkCreate struct {
	Measurements []MeasurementCreate `json:"measurements" binding:"required,min=1"`
}

type MeasurementUpdate struct {
	VehicleID  *uuid.UUID `json:"vehicle_id"`
	AreaID     *uuid.UUID `json:"area_id"`
	LocalTime  *time.Time `json:"local_time"`
	MeasuredAt *int64     `json:"measured_at"`
	DataPath   *string    `json:"data_path"`
}

func CreateMeasurements(c *gin.Context) {
	var req MeasurementBulkCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if len(req.Measurements) > BulkInsertMax {
		fail(c, apperr.Validation("too many measurements, maximum allowed: %d", BulkInsertMax))
		return
	}
	rows := make([]*model.Measurement, 0, len(req.Measurements))
	for _, m := range req.Measurements {
		rows = append(rows, &model.Measurement{
			VehicleID:  m.VehicleID,
			AreaID:     m.AreaID,
			LocalTime:  m.LocalTime,
			MeasuredAt: m.MeasuredAt,
			DataPath:   m.DataPath,
		})
	}
	response.Created(c, bulkInsert(c.Request.Context(), query.DB, rows))
}

func ListMeasurements(c *gin.Context) {
	var q struct {
		VehicleID string `form:"vehicle_id"`
		AreaID    string `form:"area_id"`
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

	tx := query.DB.WithContext(c.Request.Context()).Model(&model.Measurement{})
	if q.VehicleID != "" {
		vid, perr := uuid.Parse(q.VehicleID)
		if perr != nil {
			response.BadRequestError(c, "invalid vehicle_id")
			return
		}
		tx = tx.Where("vehicle_id = ?", vid)
	}
	if q.AreaID != "" {
		aid, perr := uuid.Parse(q.AreaID)
		if perr != nil {
			response.BadRequestError(c, "invalid area_id")
			return
		}
		tx = tx.Where("area_id = ?", aid)
	}
	if startTime != nil {
		tx = tx.Where("measured_at >= ?", startTime.Unix())
	}
	if endTime != nil {
		tx = tx.Where("measured_at <= ?", endTime.Unix())
	}

	limit, offset := clampPage(q.Limit, q.Offset, 100, 1000)
	var rows []model.Measurement
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		fail(c, apperr.Internal("failed to list measurements", err))
		return
	}
	response.Success(c, rows)
}

func GetMeasurement(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	row, ok := fetchByID[model.Measurement](c, id, "measurement")
	if !ok {
		return
	}
	response.Success(c, row)
}

func UpdateMeasurement(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req MeasurementUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	row, ok := fetchByID[model.Measurement](c, id, "measurement")
	if !ok {
		return
	}
	if req.VehicleID != nil {
		row.VehicleID = *req.VehicleID
	}
	if req.AreaID != nil {
		row.AreaID = *req.AreaID
	}
	if req.LocalTime != nil {
		row.LocalTime = *req.LocalTime
	}
	if req.MeasuredAt != nil {
		row.MeasuredAt = *req.MeasuredAt
	}
	if req.DataPath != nil {
		row.DataPath = req.DataPath
	}
	if err := query.DB.WithContext(c.Request.Context()).Save(row).Error; err != nil {
		fail(c, apperr.Internal("failed to update measurement", err))
		return
	}
	response.Success(c, row)
}

func DeleteMeasurement(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	deleteByID[model.Measurement](c, id, "measurement")
}

func RegisterMeasurement(rg *gin.RouterGroup) {
	g := rg.Group("/measurements")
	g.POST("", CreateMeasurements)
	g.GET("", ListMeasurements)
	g.GET("/:id", GetMeasurement)
	g.PUT("/:id", UpdateMeasurement)
	g.DELETE("/:id", DeleteMeasurement)
}
