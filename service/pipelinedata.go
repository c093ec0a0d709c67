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

type PipelineDataCreate struct {
	Name         *string    `json:"name"`
	Type         int16      `json:"type" binding:"min=0,max=32767"`
	DatastreamID *uuid.UUID `json:"datastream_id"`
	SceneID      *uuid.UUID `json:"scene_id"`
	Source       *string    `json:"source"`
	DataPath     *string    `json:"data_path"`
	Params       *string    `json:"params"`
}

type PipelineDataBulkCreate struct {
	PipelineData []PipelineDataCreate `json:"pipeline_data" binding:"required,min=1"`
}

type PipelineDataUpdate struct {
	Name         *string    `json:"name"`
	Type         *int16     `json:"type"`
	DatastreamID *uuid.UUID `json:"datastream_id"`
	SceneID      *uuid.UUID `json:"scene_id"`
	Source       *string    `json:"source"`
	DataPath     *string    `json:"data_path"`
	Params       *string    `json:"params"`
}

func CreatePipelineData(c *gin.Context) {
	var req PipelineDataBulkCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if len(req.PipelineData) > BulkInsertMax {
		fail(c, apperr.Validation("too many pipeline data rows, maximum allowed: %d", BulkInsertMax))
		return
	}

	result := BulkResult{IDs: []uuid.UUID{}, Errors: []BulkError{}}
	rows := make([]*model.PipelineData, 0, len(req.PipelineData))
	indexes := make([]int, 0, len(req.PipelineData))
	for i, p := range req.PipelineData {
		if p.Params != nil && !json.Valid([]byte(*p.Params)) {
			result.Errors = append(result.Errors, BulkError{Index: i, Error: "params must be a valid JSON string"})
			continue
		}
		rows = append(rows, &model.PipelineData{
			Name:         p.Name,
			Type:         p.Type,
			DatastreamID: p.DatastreamID,
			SceneID:      p.SceneID,
			Source:       p.Source,
			DataPath:     p.DataPath,
			Params:       p.Params,
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

func ListPipelineData(c *gin.Context) {
	var q struct {
		Type         *int16 `form:"type"`
		DatastreamID string `form:"datastream_id"`
		SceneID      string `form:"scene_id"`
		Source       string `form:"source"`
		Limit        int    `form:"limit"`
		Offset       int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	tx := query.DB.WithContext(c.Request.Context()).Model(&model.PipelineData{})
	if q.Type != nil {
		tx = tx.Where("type = ?", *q.Type)
	}
	if q.DatastreamID != "" {
		did, perr := uuid.Parse(q.DatastreamID)
		if perr != nil {
			response.BadRequestError(c, "invalid datastream_id")
			return
		}
		tx = tx.Where("datastream_id = ?", did)
	}
	if q.SceneID != "" {
		sid, perr := uuid.Parse(q.SceneID)
		if perr != nil {
			response.BadRequestError(c, "invalid scene_id")
			return
		}
		tx = tx.Where("scene_id = ?", sid)
	}
	if q.Source != "" {
		tx = tx.Where("source = ?", q.Source)
	}

	limit, offset := clampPage(q.Limit, q.Offset, 20, 1000)
	var rows []model.PipelineData
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		fail(c, apperr.Internal("failed to list pipeline data", err))
		return
	}
	response.Success(c, rows)
}

func GetPipelineData(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	row, ok := fetchByID[model.PipelineData](c, id, "pipeline data")
	if !ok {
		return
	}
	response.Success(c, row)
}

func UpdatePipelineData(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req PipelineDataUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if req.Params != nil && !json.Valid([]byte(*req.Params)) {
		fail(c, apperr.Validation("params must be a valid JSON string"))
		return
	}
	row, ok := fetchByID[model.PipelineData](c, id, "pipeline data")
	if !ok {
		return
	}
	if req.Name != nil {
		row.Name = req.Name
	}
	if req.Type != nil {
		row.Type = *req.Type
	}
	if req.DatastreamID != nil {
		row.DatastreamID = req.DatastreamID
	}
	if req.SceneID != nil {
		row.SceneID = req.SceneID
	}
	if req.Source != nil {
		row.Source = req.Source
	}
	if req.DataPath != nil {
		row.DataPath = req.DataPath
	}
	if req.Params != nil {
		row.Params = req.Params
	}
	if err := query.DB.WithContext(c.Request.Context()).Save(row).Error; err != nil {
		fail(c, apperr.Internal("failed to update pipeline data", err))
		return
	}
	response.Success(c, row)
}

func DeletePipelineData(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	deleteByID[model.PipelineData](c, id, "pipeline data")
}

func RegisterPipelineData(rg *gin.RouterGroup) {
	g := rg.Group("/pipeline-data")
	g.POST("", CreatePipelineData)
	g.GET("", ListPipelineData)
	g.GET("/:id", GetPipelineData)
	g.PUT("/:id", UpdatePipelineData)
	g.DELETE("/:id", DeletePipelineData)
}
