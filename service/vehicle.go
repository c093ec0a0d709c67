package service

import (
	"fleetdata/apperr"
	"fleetdata/dao/model"
	"fleetdata/dao/query"
	"fleetdata/response"

	"github.com/gin-gonic/gin"
)

type VehicleCreate struct {
	Country  *string `json:"country"`
	Name     string  `json:"name" binding:"required"`
	DataPath *string `json:"data_path"`
}

type VehicleBulkCreate struct {
	Vehicles []VehicleCreate `json:"vehicles" binding:"required,min=1"`
}

type VehicleUpdate struct {
	Country  *string `json:"country"`
	Name     *string `json:"name"`
	DataPath *string `json:"data_path"`
}

// CreateVehicles bulk-creates vehicles, reporting per-row failures.
func CreateVehicles(c *gin.Context) {
	var req VehicleBulkCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if len(req.Vehicles) > BulkInsertMax {
		fail(c, apperr.Validation("too many vehicles, maximum allowed: %d", BulkInsertMax))
		return
	}
	rows := make([]*model.Vehicle, 0, len(req.Vehicles))
	for _, v := range req.Vehicles {
		rows = append(rows, &model.Vehicle{Country: v.Country, Name: v.Name, DataPath: v.DataPath})
	}
	response.Created(c, bulkInsert(c.Request.Context(), query.DB, rows))
}

func ListVehicles(c *gin.Context) {
	var q struct {
		Country  string `form:"country"`
		Name     string `form:"name"`
		DataPath string `form:"data_path"`
		Limit    int    `form:"limit"`
		Offset   int    `form:"offset"`
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

	tx := query.DB.WithContext(c.Request.Context()).Model(&model.Vehicle{})
	if q.Country != "" {
		tx = tx.Where("country = ?", q.Country)
	}
	if q.Name != "" {
		tx = tx.Where("name LIKE ?", "%"+q.Name+"%")
	}
	if q.DataPath != "" {
		tx = tx.Where("data_path LIKE ?", "%"+q.DataPath+"%")
	}
	if startTime != nil {
		tx = tx.Where("created_at >= ?", startTime.Unix())
	}
	if endTime != nil {
		tx = tx.Where("created_at <= ?", endTime.Unix())
	}

	limit, offset := clampPage(q.Limit, q.Offset, 100, 1000)
	var rows []model.Vehicle
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		fail(c, apperr.Internal("failed to list vehicles", err))
		return
	}
	response.Success(c, rows)
}

func GetVehicle(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	row, ok := fetchByID[model.Vehicle](c, id, "vehicle")
	if !ok {
		return
	}
	response.Success(c, row)
}

func UpdateVehicle(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req VehicleUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	row, ok := fetchByID[model.Vehicle](c, id, "vehicle")
	if !ok {
		return
	}
	if req.Country != nil {
		row.Country = req.Country
	}
	if req.Name != nil {
		row.Name = *req.Name
	}
	if req.DataPath != nil {
		row.DataPath = req.DataPath
	}
	if err := query.DB.WithContext(c.Request.Context()).Save(row).Error; err != nil {
		fail(c, apperr.Internal("failed to update vehicle", err))
		return
	}
	response.Success(c, row)
}

func DeleteVehicle(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	deleteByID[model.Vehicle](c, id, "vehicle")
}

// VehicleStatistics aggregates fleet composition: totals by country and
// how many vehicles have collected data.
func VehicleStatistics(c *gin.Context) {
	tx := query.DB.WithContext(c.Request.Context()).Model(&model.Vehicle{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		fail(c, apperr.Internal("failed to count vehicles", err))
		return
	}

	type countryCount struct {
		Country string
		N       int64
	}
	var byCountry []countryCount
	err := query.DB.WithContext(c.Request.Context()).Model(&model.Vehicle{}).
		Select("country, COUNT(*) AS n").
		Where("country IS NOT NULL").
		Group("country").
		Scan(&byCountry).Error
	if err != nil {
		fail(c, apperr.Internal("failed to aggregate vehicles by country", err))
		return
	}
	countries := make(map[string]int64, len(byCountry))
	for _, cc := range byCountry {
		countries[cc.Country] = cc.N
	}

	var withDataPath int64
	err = query.DB.WithContext(c.Request.Context()).Model(&model.Vehicle{}).
		Where("data_path IS NOT NULL").
		Count(&withDataPath).Error
	if err != nil {
		fail(c, apperr.Internal("failed to count vehicles with data", err))
		return
	}

	response.Success(c, gin.H{
		"total":          total,
		"by_country":     countries,
		"with_data_path": withDataPath,
	})
}

func RegisterVehicle(rg *gin.RouterGroup) {
	g := rg.Group("/vehicles")
	g.POST("", CreateVehicles)
	g.GET("", ListVehicles)
	g.GET("/statistics", VehicleStatistics)
	g.GET("/:id", GetVehicle)
	g.PUT("/:id", UpdateVehicle)
	g.DELETE("/:id", DeleteVehicle)
}
