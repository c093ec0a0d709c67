package service

import (
	"fleetdata/apperr"
	"fleetdata/dao/model"
	"fleetdata/dao/query"
	"fleetdata/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PipelineDependencyCreate struct {
	ParentID uuid.UUID `json:"parent_id" binding:"required"`
	ChildID  uuid.UUID `json:"child_id" binding:"required"`
}

type PipelineDependencyBulkCreate struct {
	Dependencies []PipelineDependencyCreate `json:"dependencies" binding:"required,min=1"`
}

type PipelineDependencyUpdate struct {
	ParentID *uuid.UUID `json:"parent_id"`
	ChildID  *uuid.UUID `json:"child_id"`
}

func CreatePipelineDependencies(c *gin.Context) {
	var req PipelineDependencyBulkCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if len(req.Dependencies) > BulkInsertMax {
		fail(c, apperr.Validation("too many dependencies, maximum allowed: %d", BulkInsertMax))
		return
	}

	result := BulkResult{IDs: []uuid.UUID{}, Errors: []BulkError{}}
	rows := make([]*model.PipelineDependency, 0, len(req.Dependencies))
	indexes := make([]int, 0, len(req.Dependencies))
	for i, d := range req.Dependencies {
		if d.ParentID == d.ChildID {
			result.Errors = append(result.Errors, BulkError{Index: i, Error: "a pipeline cannot depend on itself"})
			continue
		}
		rows = append(rows, &model.PipelineDependency{ParentID: d.ParentID, ChildID: d.ChildID})
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

func ListPipelineDependencies(c *gin.Context) {
	var q struct {
		ParentID string `form:"parent_id"`
		ChildID  string `form:"child_id"`
		Limit    int    `form:"limit"`
		Offset   int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	tx := query.DB.WithContext(c.Request.Context()).Model(&model.PipelineDependency{})
	if q.ParentID != "" {
		pid, perr := uuid.Parse(q.ParentID)
		if perr != nil {
			response.BadRequestError(c, "invalid parent_id")
			return
		}
		tx = tx.Where("parent_id = ?", pid)
	}
	if q.ChildID != "" {
		cid, perr := uuid.Parse(q.ChildID)
		if perr != nil {
			response.BadRequestError(c, "invalid child_id")
			return
		}
		tx = tx.Where("child_id = ?", cid)
	}

	limit, offset := clampPage(q.Limit, q.Offset, 20, 1000)
	var rows []model.PipelineDependency
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		fail(c, apperr.Internal("failed to list pipeline dependencies", err))
		return
	}
	response.Success(c, rows)
}

func GetPipelineDependency(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	row, ok := fetchByID[model.PipelineDependency](c, id, "pipeline dependency")
	if !ok {
		return
	}
	response.Success(c, row)
}

func UpdatePipelineDependency(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req PipelineDependencyUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	row, ok := fetchByID[model.PipelineDependency](c, id, "pipeline dependency")
	if !ok {
		return
	}
	if req.ParentID != nil {
		row.ParentID = *req.ParentID
	}
	if req.ChildID != nil {
		row.ChildID = *req.ChildID
	}
	if row.ParentID == row.ChildID {
		fail(c, apperr.Validation("a pipeline cannot depend on itself"))
		return
	}
	if err := query.DB.WithContext(c.Request.Context()).Save(row).Error; err != nil {
		fail(c, apperr.Internal("failed to update pipeline dependency", err))
		return
	}
	response.Success(c, row)
}

func DeletePipelineDependency(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	deleteByID[model.PipelineDependency](c, id, "pipeline dependency")
}

func RegisterPipelineDependency(rg *gin.RouterGroup) {
	g := rg.Group("/pipeline-dependencies")
	g.POST("", CreatePipelineDependencies)
	g.GET("", ListPipelineDependencies)
	g.GET("/:id", GetPipelineDependency)
	g.PUT("/:id", UpdatePipelineDependency)
	g.DELETE("/:id", DeletePipelineDependency)
}
