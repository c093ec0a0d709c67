package service

import (
	"fleetdata/apperr"
	"fleetdata/dao/model"
	"fleetdata/dao/query"
	"fleetdata/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PipelineStateCreate struct {
	PipelineDataID uuid.UUID `json:"pipelinedata_id" binding:"required"`
	PipelineID     uuid.UUID `json:"pipeline_id" binding:"required"`
	Input          string    `json:"input" binding:"required"`
	Output         string    `json:"output" binding:"required"`
	State          int16     `json:"state" binding:"min=0,max=32767"`
}

type PipelineStateBulkCreate struct {
	PipelineStates []PipelineStateCreate `json:"pipeline_states" binding:"required,min=1"`
}

type PipelineStateUpdate struct {
	PipelineDataID *uuid.UUID `json:"pipelinedata_id"`
	PipelineID     *uuid.UUID `json:"pipeline_id"`
	Input          *string    `json:"input"`
	Output         *string    `json:"output"`
	State          *int16     `json:"state"`
}

func CreatePipelineStates(c *gin.Context) {
	var req PipelineStateBulkCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if len(req.PipelineStates) > BulkInsertMax {
		fail(c, apperr.Validation("too many pipeline states, maximum allowed: %d", BulkInsertMax))
		return
	}
	rows := make([]*model.PipelineState, 0, len(req.PipelineStates))
	for _, s := range req.PipelineStates {
		rows = append(rows, &model.PipelineState{
			PipelineDataID: s.PipelineDataID,
			PipelineID:     s.PipelineID,
			Input:          s.Input,
			Output:         s.Output,
			State:          s.State,
		})
	}
	response.Created(c, bulkInsert(c.Request.Context(), query.DB, rows))
}

func ListPipelineStates(c *gin.Context) {
	var q struct {
		PipelineDataID string `form:"pipelinedata_id"`
		PipelineID     string `form:"pipeline_id"`
		State          *int16 `form:"state"`
		Limit          int    `form:"limit"`
		Offset         int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	tx := query.DB.WithContext(c.Request.Context()).Model(&model.PipelineState{})
	if q.PipelineDataID != "" {
		pid, perr := uuid.Parse(q.PipelineDataID)
		if perr != nil {
			response.BadRequestError(c, "invalid pipelinedata_id")
			return
		}
		tx = tx.Where("pipelinedata_id = ?", pid)
	}
	if q.PipelineID != "" {
		pid, perr := uuid.Parse(q.PipelineID)
		if perr != nil {
			response.BadRequestError(c, "invalid pipeline_id")
			return
		}
		tx = tx.Where("pipeline_id = ?", pid)
	}
	if q.State != nil {
		tx = tx.Where("state = ?", *q.State)
	}

	limit, offset := clampPage(q.Limit, q.Offset, 20, 1000)
	var rows []model.PipelineState
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		fail(c, apperr.Internal("failed to list pipeline states", err))
		return
	}
	response.Success(c, rows)
}

func GetPipelineState(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	row, ok := fetchByID[model.PipelineState](c, id, "pipeline state")
	if !ok {
		return
	}
	response.Success(c, row)
}

func UpdatePipelineState(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req PipelineStateUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	row, ok := fetchByID[model.PipelineState](c, id, "pipeline state")
	if !ok {
		return
	}
	if req.PipelineDataID != nil {
		row.PipelineDataID = *req.PipelineDataID
	}
	if req.PipelineID != nil {
		row.PipelineID = *req.PipelineID
	}
	if req.Input != nil {
		row.Input = *req.Input
	}
	if req.Output != nil {
		row.Output = *req.Output
	}
	if req.State != nil {
		row.State = *req.State
	}
	if err := query.DB.WithContext(c.Request.Context()).Save(row).Error; err != nil {
		fail(c, apperr.Internal("failed to update pipeline state", err))
		return
	}
	response.Success(c, row)
}

func DeletePipelineState(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	deleteByID[model.PipelineState](c, id, "pipeline state")
}

func RegisterPipelineState(rg *gin.RouterGroup) {
	g := rg.Group("/pipeline-states")
	g.POST("", CreatePipelineStates)
	g.GET("", ListPipelineStates)
	g.GET("/:id", GetPipelineState)
	g.PUT("/:id", UpdatePipelineState)
	g.DELETE("/:id", DeletePipelineState)
}
