package service

import (
	"fleetdata/apperr"
	"fleetdata/dao/model"
	"fleetdata/dao/query"
	"fleetdata/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DatastreamCreate struct {
	Type          int16     `json:"type" binding:"min=0,max=32767"`
	MeasurementID uuid.UUID `json:"measurement_id" binding:"required"`
	DataPath      *string   `json:"data_path"`
	SrcPath       *string   `json:"src_path"`
}

type DatastreamBulkCreate struct {
	Datastreams []DatastreamCreate `json:"datastreams" binding:"required,min=1"`
}

type DatastreamUpdate struct {
	Type          *int16     `json:"type"`
	MeasurementID *uuid.UUID `json:"measurement_id"`
	DataPath      *string    `json:"data_path"`
	SrcPath       *string    `json:"src_path"`
}

func CreateDatastreams(c *gin.Context) {
	var req DatastreamBulkCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if len(req.Datastreams) > BulkInsertMax {
		fail(c, apperr.Validation("too many datastreams, maximum allowed: %d", BulkInsertMax))
		return
	}
	rows := make([]*model.Datastream, 0, len(req.Datastreams))
	for _, d := range req.Datastreams {
		rows = append(rows, &model.Datastream{
			Type:          d.Type,
			MeasurementID: d.MeasurementID,
			DataPath:      d.DataPath,
			SrcPath:       d.SrcPath,
		})
	}
	response.Created(c, bulkInsert(c.Request.Context(), query.DB, rows))
}

func ListDatastreams(c *gin.Context) {
	var q struct {
		Type          *int16 `form:"type"`
		MeasurementID string `form:"measurement_id"`
		DataPath      string `form:"data_path"`
		SrcPath       string `form:"src_path"`
		Limit         int    `form:"limit"`
		Offset        int    `form:"offset"`
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

	tx := query.DB.WithContext(c.Request.Context()).Model(&model.Datastream{})
	if q.Type != nil {
		tx = tx.Where("type = ?", *q.Type)
	}
	if q.MeasurementID != "" {
		mid, perr := uuid.Parse(q.MeasurementID)
		if perr != nil {
			response.BadRequestError(c, "invalid measurement_id")
			return
		}
		tx = tx.Where("measurement_id = ?", mid)
	}
	if q.DataPath != "" {
		tx = tx.Where("data_path LIKE ?", "%"+q.DataPath+"%")
	}
	if q.SrcPath != "" {
		tx = tx.Where("src_path LIKE ?", "%"+q.SrcPath+"%")
	}
	if startTime != nil {
		tx = tx.Where("created_at >= ?", startTime.Unix())
	}
	if endTime != nil {
		tx = tx.Where("created_at <= ?", endTime.Unix())
	}

	limit, offset := clampPage(q.Limit, q.Offset, 100, 1000)
	var rows []model.Datastream
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		fail(c, apperr.Internal("failed to list datastreams", err))
		return
	}
	response.Success(c, rows)
}

func GetDatastream(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	row, ok := fetchByID[model.Datastream](c, id, "datastream")
	if !ok {
		return
	}
	response.Success(c, row)
}

func UpdateDatastream(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req DatastreamUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	row, ok := fetchByID[model.Datastream](c, id, "datastream")
	if !ok {
		return
	}
	if req.Type != nil {
		row.Type = *req.Type
	}
	if req.MeasurementID != nil {
		row.MeasurementID = *req.MeasurementID
	}
	if req.DataPath != nil {
		row.DataPath = req.DataPath
	}
	if req.SrcPath != nil {
		row.SrcPath = req.SrcPath
	}
	if err := query.DB.WithContext(c.Request.Context()).Save(row).Error; err != nil {
		fail(c, apperr.Internal("failed to update datastream", err))
		return
	}
	response.Success(c, row)
}

func DeleteDatastream(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	deleteByID[model.Datastream](c, id, "datastream")
}

func RegisterDatastream(rg *gin.RouterGroup) {
	g := rg.Group("/datastreams")
	g.POST("", CreateDatastreams)
	g.GET("", ListDatastreams)
	g.GET("/:id", GetDatastream)
	g.PUT("/:id", UpdateDatastream)
	g.DELETE("/:id", DeleteDatastream)
}
