package service

import (
	"strconv"

	"fleetdata/apperr"
	"fleetdata/composer"
	"fleetdata/dao/model"
	"fleetdata/dao/query"
	"fleetdata/response"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type DatasetCreate struct {
	Name            string          `json:"name" binding:"required"`
	Description     *string         `json:"description"`
	Purpose         *string         `json:"purpose"`
	SourceType      int16           `json:"source_type"`
	FilePath        *string         `json:"file_path"`
	FileFormat      *string         `json:"file_format"`
	AlgorithmConfig datatypes.JSON  `json:"algorithm_config"`
	CreatedBy       *string         `json:"created_by"`
	Items           []composer.Item `json:"items"`
}

type DatasetUpdate struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	Purpose         *string          `json:"purpose"`
	Status          *int16           `json:"status"`
	AlgorithmConfig datatypes.JSON   `json:"algorithm_config"`
	FilePath        *string          `json:"file_path"`
	FileFormat      *string          `json:"file_format"`
	Items           *[]composer.Item `json:"replace_items"`
}

type DatasetItems struct {
	Items []composer.Item `json:"items" binding:"required"`
}

// DatasetDetail is a dataset together with its direct members.
type DatasetDetail struct {
	model.Dataset
	Items []composer.Item `json:"items"`
}

func datasetComposer() *composer.Composer {
	return composer.New(query.DB)
}

func CreateDataset(c *gin.Context) {
	var req DatasetCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	createdBy := req.CreatedBy
	if createdBy == nil {
		createdBy = requestUser(c)
	}

	ds, err := datasetComposer().Create(c.Request.Context(), composer.CreateSpec{
		Name:            req.Name,
		Description:     req.Description,
		Purpose:         req.Purpose,
		SourceType:      model.DatasetSourceType(req.SourceType),
		FilePath:        req.FilePath,
		FileFormat:      req.FileFormat,
		AlgorithmConfig: req.AlgorithmConfig,
		CreatedBy:       createdBy,
		Items:           req.Items,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, ds)
}

func datasetFilter(c *gin.Context) (composer.Filter, bool) {
	var q struct {
		Search     string  `form:"search"`
		Purpose    *string `form:"purpose"`
		Status     *int16  `form:"status"`
		SourceType *int16  `form:"source_type"`
		CreatedBy  *string `form:"created_by"`
		Limit      int     `form:"limit"`
		Offset     int     `form:"offset"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequestError(c, err.Error())
		return composer.Filter{}, false
	}
	createdFrom, err := parseTimeQuery(c, "created_from")
	if err != nil {
		response.BadRequestError(c, err.Error())
		return composer.Filter{}, false
	}
	createdTo, err := parseTimeQuery(c, "created_to")
	if err != nil {
		response.BadRequestError(c, err.Error())
		return composer.Filter{}, false
	}

	f := composer.Filter{
		Search:      q.Search,
		Purpose:     q.Purpose,
		CreatedBy:   q.CreatedBy,
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
		Offset:      q.Offset,
		Limit:       q.Limit,
	}
	if q.Status != nil {
		s := model.DatasetStatus(*q.Status)
		f.Status = &s
	}
	if q.SourceType != nil {
		st := model.DatasetSourceType(*q.SourceType)
		f.SourceType = &st
	}
	return f, true
}

func ListDatasets(c *gin.Context) {
	f, ok := datasetFilter(c)
	if !ok {
		return
	}
	rows, total, err := datasetComposer().List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"datasets": rows, "total": total})
}

func CountDatasets(c *gin.Context) {
	f, ok := datasetFilter(c)
	if !ok {
		return
	}
	total, err := datasetComposer().Count(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"count": total})
}

func GetDataset(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ds, items, err := datasetComposer().Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if ds == nil {
		fail(c, apperr.NotFound("dataset %s not found", id))
		return
	}
	response.Success(c, DatasetDetail{Dataset: *ds, Items: items})
}

func UpdateDataset(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req DatasetUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	patch := composer.UpdateSpec{
		Name:            req.Name,
		Description:     req.Description,
		Purpose:         req.Purpose,
		AlgorithmConfig: req.AlgorithmConfig,
		FilePath:        req.FilePath,
		FileFormat:      req.FileFormat,
		ReplaceItems:    req.Items,
	}
	if req.Status != nil {
		s := model.DatasetStatus(*req.Status)
		patch.Status = &s
	}

	ds, err := datasetComposer().Update(c.Request.Context(), id, patch)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, ds)
}

func ResolveDatasetItems(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	mode, ok := composer.ParseResolveMode(c.Query("resolve"))
	if !ok {
		response.BadRequestError(c, "resolve must be one of direct, leaf, all")
		return
	}

	var kindFilter *model.ItemKind
	if raw := c.Query("item_type"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !model.ItemKind(n).Valid() {
			response.BadRequestError(c, "invalid item_type: "+raw)
			return
		}
		k := model.ItemKind(n)
		kindFilter = &k
	}

	dedupe := false
	if raw := c.Query("dedupe"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequestError(c, "dedupe must be a boolean")
			return
		}
		dedupe = b
	}

	items, err := datasetComposer().ResolveItems(c.Request.Context(), id, mode, kindFilter, dedupe)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"items": items, "total": len(items)})
}

func AddDatasetItems(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req DatasetItems
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	ds, err := datasetComposer().AddItems(c.Request.Context(), id, req.Items)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, ds)
}

func RemoveDatasetItems(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req DatasetItems
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	ds, err := datasetComposer().RemoveItems(c.Request.Context(), id, req.Items)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, ds)
}

func DeleteDataset(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := datasetComposer().Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": id})
}

func RegisterDataset(rg *gin.RouterGroup) {
	g := rg.Group("/datasets")
	g.POST("", CreateDataset)
	g.GET("", ListDatasets)
	g.GET("/count", CountDatasets)
	g.GET("/:id", GetDataset)
	g.PUT("/:id", UpdateDataset)
	g.PATCH("/:id", UpdateDataset)
	g.DELETE("/:id", DeleteDataset)
	g.GET("/:id/items", ResolveDatasetItems)
	g.POST("/:id/items", AddDatasetItems)
	g.DELETE("/:id/items", RemoveDatasetItems)
}
