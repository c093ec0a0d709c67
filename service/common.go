package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fleetdata/apperr"
	"fleetdata/dao/query"
	"fleetdata/logutils"
	"fleetdata/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BulkInsertMax caps bulk-at-root create payloads. Overridden from config
// at startup.
var BulkInsertMax = 1000

// fail reports a service error to the client, logging internal causes
// server-side.
func fail(c *gin.Context, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		logutils.Log.WithField("path", c.FullPath()).Error(err)
	}
	response.Error(c, err)
}

// idParam parses the :id path parameter. On failure it writes the error
// response and returns false.
func idParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequestError(c, "invalid id: "+c.Param("id"))
		return uuid.Nil, false
	}
	return id, true
}

// clampPage normalizes limit/offset against a default and a hard cap.
func clampPage(limit, offset, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// parseTimeQuery parses an optional RFC 3339 query value.
func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be RFC 3339: %w", key, err)
	}
	return &t, nil
}

// fetchByID loads a row or writes the not-found/internal response.
func fetchByID[T any](c *gin.Context, id uuid.UUID, entity string) (*T, bool) {
	var row T
	err := query.DB.WithContext(c.Request.Context()).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.HTTPError(c, http.StatusNotFound,
			fmt.Sprintf("%s %s not found", entity, id), response.NotFound)
		return nil, false
	}
	if err != nil {
		fail(c, apperr.Internal("failed to fetch "+entity, err))
		return nil, false
	}
	return &row, true
}

// deleteByID deletes a row, 404ing when it does not exist.
func deleteByID[T any](c *gin.Context, id uuid.UUID, entity string) {
	row, ok := fetchByID[T](c, id, entity)
	if !ok {
		return
	}
	if err := query.DB.WithContext(c.Request.Context()).Delete(row).Error; err != nil {
		fail(c, apperr.Internal("failed to delete "+entity, err))
		return
	}
	logutils.Log.WithFields(logutils.Fields{"entity": entity, "id": id}).Info("deleted")
	response.Success(c, gin.H{"deleted": id})
}

// BulkResult reports the outcome of a bulk-at-root create: rows that fail
// are skipped and reported, rows that pass commit together.
type BulkResult struct {
	Created int         `json:"created"`
	Failed  int         `json:"failed"`
	IDs     []uuid.UUID `json:"ids"`
	Errors  []BulkError `json:"errors"`
}

type BulkError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// bulkInsert inserts each row in its own savepoint inside one outer
// transaction, so a failing row is rolled back alone while the rest
// commit together.
func bulkInsert[T interface{ GetID() uuid.UUID }](ctx context.Context, db *gorm.DB, rows []T) BulkResult {
	result := BulkResult{IDs: []uuid.UUID{}, Errors: []BulkError{}}
	_ = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, row := range rows {
			err := tx.Transaction(func(txn *gorm.DB) error {
				return txn.Create(row).Error
			})
			if err != nil {
				result.Errors = append(result.Errors, BulkError{Index: i, Error: bulkErrMsg(err)})
				continue
			}
			result.IDs = append(result.IDs, row.GetID())
		}
		return nil
	})
	result.Created = len(result.IDs)
	result.Failed = len(result.Errors)
	return result
}

func bulkErrMsg(err error) string {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return "duplicate key"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return "referenced row does not exist"
	default:
		logutils.Log.Error(err)
		return "insert failed"
	}
}
