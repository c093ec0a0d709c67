package service

import (
	"fmt"
	"time"

	"fleetdata/apperr"
	"fleetdata/dao/model"
	"fleetdata/dao/query"
	"fleetdata/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type DriverCreate struct {
	Email    *string `json:"email"`
	Name     string  `json:"name" binding:"required"`
	NameKana *string `json:"name_kana"`

	LicenseNumber     *string `json:"license_number"`
	LicenseType       *string `json:"license_type"`
	LicenseExpiryDate *string `json:"license_expiry_date"`

	CertificationLevel    model.CertificationLevel `json:"certification_level" binding:"min=0,max=3"`
	CertificationDate     *string                  `json:"certification_date"`
	TrainingCompletedDate *string                  `json:"training_completed_date"`

	Status         model.DriverStatus   `json:"status" binding:"min=0,max=3"`
	EmploymentType model.EmploymentType `json:"employment_type" binding:"min=0,max=3"`

	Department   *string    `json:"department"`
	Team         *string    `json:"team"`
	SupervisorID *uuid.UUID `json:"supervisor_id"`

	PhoneNumber      *string `json:"phone_number"`
	EmergencyContact *string `json:"emergency_contact"`
	Notes            *string `json:"notes"`
	ExtraMetadata    *string `json:"metadata"`
}

type DriverBulkCreate struct {
	Drivers []DriverCreate `json:"drivers" binding:"required,min=1"`
}

type DriverUpdate struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	NameKana *string `json:"name_kana"`

	LicenseNumber     *string `json:"license_number"`
	LicenseType       *string `json:"license_type"`
	LicenseExpiryDate *string `json:"license_expiry_date"`

	CertificationLevel    *model.CertificationLevel `json:"certification_level"`
	CertificationDate     *string                   `json:"certification_date"`
	TrainingCompletedDate *string                   `json:"training_completed_date"`

	Status         *model.DriverStatus   `json:"status"`
	EmploymentType *model.EmploymentType `json:"employment_type"`

	Department   *string    `json:"department"`
	Team         *string    `json:"team"`
	SupervisorID *uuid.UUID `json:"supervisor_id"`

	TotalDrives   *int     `json:"total_drives"`
	TotalDistance *float64 `json:"total_distance"`
	TotalDuration *int64   `json:"total_duration"`
	LastDriveDate *string  `json:"last_drive_date"`

	SafetyScore      *float64 `json:"safety_score"`
	EfficiencyScore  *float64 `json:"efficiency_score"`
	DataQualityScore *float64 `json:"data_quality_score"`

	PhoneNumber      *string `json:"phone_number"`
	EmergencyContact *string `json:"emergency_contact"`
	Notes            *string `json:"notes"`
	ExtraMetadata    *string `json:"metadata"`
}

func parseDate(field string, value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *value)
	if err != nil {
		return nil, fmt.Errorf("%s must be formatted %s", field, dateLayout)
	}
	return &t, nil
}

func (d *DriverCreate) toModel() (*model.Driver, error) {
	licenseExpiry, err := parseDate("license_expiry_date", d.LicenseExpiryDate)
	if err != nil {
		return nil, err
	}
	certDate, err := parseDate("certification_date", d.CertificationDate)
	if err != nil {
		return nil, err
	}
	trainingDate, err := parseDate("training_completed_date", d.TrainingCompletedDate)
	if err != nil {
		return nil, err
	}
	return &model.Driver{
		Email:                 d.Email,
		Name:                  d.Name,
		NameKana:              d.NameKana,
		LicenseNumber:         d.LicenseNumber,
		LicenseType:           d.LicenseType,
		LicenseExpiryDate:     licenseExpiry,
		CertificationLevel:    d.CertificationLevel,
		CertificationDate:     certDate,
		TrainingCompletedDate: trainingDate,
		Status:                d.Status,
		EmploymentType:        d.EmploymentType,
		Department:            d.Department,
		Team:                  d.Team,
		SupervisorID:          d.SupervisorID,
		PhoneNumber:           d.PhoneNumber,
		EmergencyContact:      d.EmergencyContact,
		Notes:                 d.Notes,
		ExtraMetadata:         d.ExtraMetadata,
	}, nil
}

// CreateDrivers bulk-creates drivers; rows with unparseable dates are
// reported as failures without blocking the rest.
func CreateDrivers(c *gin.Context) {
	var req DriverBulkCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if len(req.Drivers) > BulkInsertMax {
		fail(c, apperr.Validation("too many drivers, maximum allowed: %d", BulkInsertMax))
		return
	}

	result := BulkResult{IDs: []uuid.UUID{}, Errors: []BulkError{}}
	rows := make([]*model.Driver, 0, len(req.Drivers))
	indexes := make([]int, 0, len(req.Drivers))
	for i, d := range req.Drivers {
		row, err := d.toModel()
		if err != nil {
			result.Errors = append(result.Errors, BulkError{Index: i, Error: err.Error()})
			continue
		}
		rows = append(rows, row)
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

func ListDrivers(c *gin.Context) {
	var q struct {
		Email                string   `form:"email"`
		Name                 string   `form:"name"`
		CertificationLevel   *int16   `form:"certification_level"`
		Status               *int16   `form:"status"`
		EmploymentType       *int16   `form:"employment_type"`
		Department           string   `form:"department"`
		Team                 string   `form:"team"`
		SupervisorID         string   `form:"supervisor_id"`
		LicenseExpiresBefore string   `form:"license_expiring_before"`
		LastDriveAfter       string   `form:"last_drive_after"`
		LastDriveBefore      string   `form:"last_drive_before"`
		MinSafetyScore       *float64 `form:"min_safety_score"`
		MinEfficiencyScore   *float64 `form:"min_efficiency_score"`
		MinDataQualityScore  *float64 `form:"min_data_quality_score"`
		Limit                int      `form:"limit"`
		Offset               int      `form:"offset"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	tx := query.DB.WithContext(c.Request.Context()).Model(&model.Driver{})
	if q.Email != "" {
		tx = tx.Where("email = ?", q.Email)
	}
	if q.Name != "" {
		tx = tx.Where("name LIKE ?", "%"+q.Name+"%")
	}
	if q.CertificationLevel != nil {
		tx = tx.Where("certification_level = ?", *q.CertificationLevel)
	}
	if q.Status != nil {
		tx = tx.Where("status = ?", *q.Status)
	}
	if q.EmploymentType != nil {
		tx = tx.Where("employment_type = ?", *q.EmploymentType)
	}
	if q.Department != "" {
		tx = tx.Where("department = ?", q.Department)
	}
	if q.Team != "" {
		tx = tx.Where("team = ?", q.Team)
	}
	if q.SupervisorID != "" {
		sid, err := uuid.Parse(q.SupervisorID)
		if err != nil {
			response.BadRequestError(c, "invalid supervisor_id")
			return
		}
		tx = tx.Where("supervisor_id = ?", sid)
	}
	for _, dateFilter := range []struct {
		value  string
		column string
		op     string
	}{
		{q.LicenseExpiresBefore, "license_expiry_date", "<"},
		{q.LastDriveAfter, "last_drive_date", ">="},
		{q.LastDriveBefore, "last_drive_date", "<="},
	} {
		if dateFilter.value == "" {
			continue
		}
		t, err := time.Parse(dateLayout, dateFilter.value)
		if err != nil {
			response.BadRequestError(c, "date filters must be formatted "+dateLayout)
			return
		}
		tx = tx.Where(dateFilter.column+" "+dateFilter.op+" ?", t)
	}
	if q.MinSafetyScore != nil {
		tx = tx.Where("safety_score >= ?", *q.MinSafetyScore)
	}
	if q.MinEfficiencyScore != nil {
		tx = tx.Where("efficiency_score >= ?", *q.MinEfficiencyScore)
	}
	if q.MinDataQualityScore != nil {
		tx = tx.Where("data_quality_score >= ?", *q.MinDataQualityScore)
	}

	limit, offset := clampPage(q.Limit, q.Offset, 100, 1000)
	var rows []model.Driver
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		fail(c, apperr.Internal("failed to list drivers", err))
		return
	}
	response.Success(c, rows)
}

func GetDriver(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	row, ok := fetchByID[model.Driver](c, id, "driver")
	if !ok {
		return
	}
	response.Success(c, row)
}

func UpdateDriver(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req DriverUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if req.CertificationLevel != nil && (*req.CertificationLevel < 0 || *req.CertificationLevel > 3) {
		fail(c, apperr.Validation("certification_level must be between 0 and 3"))
		return
	}
	if req.Status != nil && (*req.Status < 0 || *req.Status > 3) {
		fail(c, apperr.Validation("status must be between 0 and 3"))
		return
	}
	if req.EmploymentType != nil && (*req.EmploymentType < 0 || *req.EmploymentType > 3) {
		fail(c, apperr.Validation("employment_type must be between 0 and 3"))
		return
	}

	row, ok := fetchByID[model.Driver](c, id, "driver")
	if !ok {
		return
	}
	if err := applyDriverUpdate(row, &req); err != nil {
		fail(c, apperr.Validation("%s", err.Error()))
		return
	}
	if err := query.DB.WithContext(c.Request.Context()).Save(row).Error; err != nil {
		fail(c, apperr.Internal("failed to update driver", err))
		return
	}
	response.Success(c, row)
}

func applyDriverUpdate(row *model.Driver, req *DriverUpdate) error {
	for _, d := range []struct {
		field string
		value *string
		dst   **time.Time
	}{
		{"license_expiry_date", req.LicenseExpiryDate, &row.LicenseExpiryDate},
		{"certification_date", req.CertificationDate, &row.CertificationDate},
		{"training_completed_date", req.TrainingCompletedDate, &row.TrainingCompletedDate},
		{"last_drive_date", req.LastDriveDate, &row.LastDriveDate},
	} {
		if d.value == nil {
			continue
		}
		t, err := parseDate(d.field, d.value)
		if err != nil {
			return err
		}
		*d.dst = t
	}

	if req.Email != nil {
		row.Email = req.Email
	}
	if req.Name != nil {
		row.Name = *req.Name
	}
	if req.NameKana != nil {
		row.NameKana = req.NameKana
	}
	if req.LicenseNumber != nil {
		row.LicenseNumber = req.LicenseNumber
	}
	if req.LicenseType != nil {
		row.LicenseType = req.LicenseType
	}
	if req.CertificationLevel != nil {
		row.CertificationLevel = *req.CertificationLevel
	}
	if req.Status != nil {
		row.Status = *req.Status
	}
	if req.EmploymentType != nil {
		row.EmploymentType = *req.EmploymentType
	}
	if req.Department != nil {
		row.Department = req.Department
	}
	if req.Team != nil {
		row.Team = req.Team
	}
	if req.SupervisorID != nil {
		row.SupervisorID = req.SupervisorID
	}
	if req.TotalDrives != nil {
		row.TotalDrives = *req.TotalDrives
	}
	if req.TotalDistance != nil {
		row.TotalDistance = req.TotalDistance
	}
	if req.TotalDuration != nil {
		row.TotalDuration = *req.TotalDuration
	}
	if req.SafetyScore != nil {
		row.SafetyScore = req.SafetyScore
	}
	if req.EfficiencyScore != nil {
		row.EfficiencyScore = req.EfficiencyScore
	}
	if req.DataQualityScore != nil {
		row.DataQualityScore = req.DataQualityScore
	}
	if req.PhoneNumber != nil {
		row.PhoneNumber = req.PhoneNumber
	}
	if req.EmergencyContact != nil {
		row.EmergencyContact = req.EmergencyContact
	}
	if req.Notes != nil {
		row.Notes = req.Notes
	}
	if req.ExtraMetadata != nil {
		row.ExtraMetadata = req.ExtraMetadata
	}
	return nil
}

func DeleteDriver(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	deleteByID[model.Driver](c, id, "driver")
}

func RegisterDriver(rg *gin.RouterGroup) {
	g := rg.Group("/drivers")
	g.POST("", CreateDrivers)
	g.GET("", ListDrivers)
	g.GET("/:id", GetDriver)
	g.PUT("/:id", UpdateDriver)
	g.DELETE("/:id", DeleteDriver)
}
