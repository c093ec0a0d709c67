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

type PipelineCreate struct {
	Name        string  `json:"name" binding:"required"`
	Type        int16   `json:"type" binding:"min=0,max=32767"`
	Group       int16   `json:"group" binding:"min=0,max=32767"`
	IsAvailable int16   `json:"is_available" binding:"min=0,max=1"`
	Version     int16   `json:"version" binding:"min=0,max=32767"`
	Options     *string `json:"options"`
	Params      string  `json:"params" binding:"required"`
}

type PipelineBulkCreate struct {
	Pipelines []PipelineCreate `json:"pipelines" binding:"required,min=1"`
}

type PipelineUpdate struct {
	Name        *string `json:"name"`
	Type        *int16  `json:"type"`
	Group       *int16  `json:"group"`
	IsAvailable *int16  `json:"is_available"`
	Version     *int16  `json:"version"`
	Options     *string `json:"options"`
	Params      *string `json:"params"`
}

// validPipelineJSON checks the params/options JSON-string fields.
func validPipelineJSON(params string, options *string) error {
	if !json.Valid([]byte(params)) {
		return apperr.Validation("params must be a valid JSON string")
	}
	if options != nil && !json.Valid([]byte(*options)) {
		return apperr.Validation("options must be a valid JSON string")
	}
	return nil
}

func CreatePipelines(c *gin.Context) {
	var req PipelineBulkCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if len(req.Pipelines) > BulkInsertMax {
		fail(c, apperr.Validation("too many pipelines, maximum allowed: %d", BulkInsertMax))
		return
	}

	result := BulkResult{IDs: []uuid.UUID{}, Errors: []BulkError{}}
	rows := make([]*model.Pipeline, 0, len(req.Pipelines))
	indexes := make([]int, 0, len(req.Pipelines))
	for i, p := range req.Pipelines {
		if err := validPipelineJSON(p.Params, p.Options); err != nil {
			result.Errors = append(result.Errors, BulkError{Index: i, Error: apperr.Message(err)})
			continue
		}
		rows = append(rows, &model.Pipeline{
			Name:        p.Name,
			Type:        p.Type,
			Group:       p.Group,
			IsAvailable: p.IsAvailable,
			Version:     p.Version,
			Options:     p.Options,
			Params:      p.Params,
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

func ListPipelines(c *gin.Context) {
	var q struct {
		Name        string `form:"name"`
		Type        *int16 `form:"type"`
		Group       *int16 `form:"group"`
		IsAvailable *int16 `form:"is_available"`
		Version     *int16 `form:"version"`
		MinVersion  *int16 `form:"min_version"`
		MaxVersion  *int16 `form:"max_version"`
		Limit       int    `form:"limit"`
		Offset      int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	tx := query.DB.WithContext(c.Request.Context()).Model(&model.Pipeline{})
	if q.Name != "" {
		tx = tx.Where("name LIKE ?", "%"+q.Name+"%")
	}
	if q.Type != nil {
		tx = tx.Where("type = ?", *q.Type)
	}
	if q.Group != nil {
		tx = tx.Where("\"group\" = ?", *q.Group)
	}
	if q.IsAvailable != nil {
		tx = tx.Where("is_available = ?", *q.IsAvailable)
	}
	if q.Version != nil {
		tx = tx.Where("version = ?", *q.Version)
	}
	if q.MinVersion != nil {
		tx = tx.Where("version >= ?", *q.MinVersion)
	}
	if q.MaxVersion != nil {
		tx = tx.Where("version <= ?", *q.MaxVersion)
	}

	limit, offset := clampPage(q.Limit, q.Offset, 20, 1000)
	var rows []model.Pipeline
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		fail(c, apperr.Internal("failed to list pipelines", err))
		return
	}
	response.Success(c, rows)
}

func GetPipeline(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	row, ok := fetchByID[model.Pipeline](c, id, "pipeline")
	if !ok {
		return
	}
	response.Success(c, row)
}

func UpdatePipeline(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req PipelineUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if req.Params != nil && !json.Valid([]byte(*req.Params)) {
		fail(c, apperr.Validation("params must be a valid JSON string"))
		return
	}
	if req.Options != nil && !json.Valid([]byte(*req.Options)) {
		fail(c, apperr.Validation("options must be a valid JSON string"))
		return
	}
	row, ok := fetchByID[model.Pipeline](c, id, "pipeline")
	if !ok {
		return
	}
	if req.Name != nil {
		row.Name = *req.Name
	}
	if req.Type != nil {
		row.Type = *req.Type
	}
	if req.Group != nil {
		row.Group = *req.Group
	}
	if req.IsAvailable != nil {
		row.IsAvailable = *req.IsAvailable
	}
	if req.Version != nil {
		row.Version = *req.Version
	}
	if req.Options != nil {
		row.Options = req.Options
	}
	if req.Params != nil {
		row.Params = *req.Params
	}
	if err := query.DB.WithContext(c.Request.Context()).Save(row).Error; err != nil {
		fail(c, apperr.Internal("failed to update pipeline", err))
		return
	}
	response.Success(c, row)
}

func DeletePipeline(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	deleteByID[model.Pipeline](c, id, "pipeline")
}

func RegisterPipeline(rg *gin.RouterGroup) {
	g := rg.Group("/pipelines")
	g.POST("", CreatePipelines)
	g.GET("", ListPipelines)
	g.GET("/:id", GetPipeline)
	g.PUT("/:id", UpdatePipeline)
	g.DELETE("/:id", DeletePipeline)
}
