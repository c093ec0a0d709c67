package service

import (
	"fleetdata/apperr"
	"fleetdata/dao/model"
	"fleetdata/dao/query"
	"fleetdata/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SceneCreate struct {
	Name         *string    `json:"name"`
	Type         *int16     `json:"type"`
	State        *int16     `json:"state"`
	DatastreamID *uuid.UUID `json:"datastream_id"`
	StartIdx     int        `json:"start_idx"`
	EndIdx       int        `json:"end_idx"`
	DataPath     *string    `json:"data_path"`
}

type SceneUpdate struct {
	Name         *string    `json:"name"`
	Type         *int16     `json:"type"`
	State        *int16     `json:"state"`
	DatastreamID *uuid.UUID `json:"datastream_id"`
	StartIdx     *int       `json:"start_idx"`
	EndIdx       *int       `json:"end_idx"`
	DataPath     *string    `json:"data_path"`
}

// CreateScene creates a single scene. Scenes are cut one at a time by the
// labeling tooling, so there is no bulk endpoint.
func CreateScene(c *gin.Context) {
	var req SceneCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if req.EndIdx < req.StartIdx {
		fail(c, apperr.Validation("end_idx must be greater than or equal to start_idx"))
		return
	}
	row := &model.Scene{
		Name:         req.Name,
		Type:         req.Type,
		State:        req.State,
		DatastreamID: req.DatastreamID,
		StartIdx:     req.StartIdx,
		EndIdx:       req.EndIdx,
		DataPath:     req.DataPath,
	}
	if err := query.DB.WithContext(c.Request.Context()).Create(row).Error; err != nil {
		fail(c, apperr.Internal("failed to create scene", err))
		return
	}
	response.Created(c, row)
}

func ListScenes(c *gin.Context) {
	var q struct {
		Type         *int16 `form:"type"`
		State        *int16 `form:"state"`
		DatastreamID string `form:"datastream_id"`
		Name         string `form:"name"`
		Limit        int    `form:"limit"`
		Offset       int    `form:"offset"`
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

	tx := query.DB.WithContext(c.Request.Context()).Model(&model.Scene{})
	if q.Type != nil {
		tx = tx.Where("type = ?", *q.Type)
	}
	if q.State != nil {
		tx = tx.Where("state = ?", *q.State)
	}
	if q.DatastreamID != "" {
		did, perr := uuid.Parse(q.DatastreamID)
		if perr != nil {
			response.BadRequestError(c, "invalid datastream_id")
			return
		}
		tx = tx.Where("datastream_id = ?", did)
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
	var rows []model.Scene
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		fail(c, apperr.Internal("failed to list scenes", err))
		return
	}
	response.Success(c, rows)
}

func GetScene(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	row, ok := fetchByID[model.Scene](c, id, "scene")
	if !ok {
		return
	}
	response.Success(c, row)
}

func UpdateScene(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req SceneUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	row, ok := fetchByID[model.Scene](c, id, "scene")
	if !ok {
		return
	}

	startIdx := row.StartIdx
	endIdx := row.EndIdx
	if req.StartIdx != nil {
		startIdx = *req.StartIdx
	}
	if req.EndIdx != nil {
		endIdx = *req.EndIdx
	}
	if endIdx < startIdx {
		fail(c, apperr.Validation("end_idx must be greater than or equal to start_idx"))
		return
	}

	if req.Name != nil {
		row.Name = req.Name
	}
	if req.Type != nil {
		row.Type = req.Type
	}
	if req.State != nil {
		row.State = req.State
	}
	if req.DatastreamID != nil {
		row.DatastreamID = req.DatastreamID
	}
	row.StartIdx = startIdx
	row.EndIdx = endIdx
	if req.DataPath != nil {
		row.DataPath = req.DataPath
	}
	if err := query.DB.WithContext(c.Request.Context()).Save(row).Error; err != nil {
		fail(c, apperr.Internal("failed to update scene", err))
		return
	}
	response.Success(c, row)
}

func DeleteScene(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	deleteByID[model.Scene](c, id, "scene")
}

func RegisterScene(rg *gin.RouterGroup) {
	g := rg.Group("/scenes")
	g.POST("", CreateScene)
	g.GET("", ListScenes)
	g.GET("/:id", GetScene)
	g.PUT("/:id", UpdateScene)
	g.DELETE("/:id", DeleteScene)
}
