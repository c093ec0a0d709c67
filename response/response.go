package response

import (
	"net/http"

	"fleetdata/apperr"

	"github.com/gin-gonic/gin"
)

// Used by swagger to generate documentation
type Response[T any] struct {
	Code ErrorCode `json:"code"`
	Data T         `json:"data"`
	Msg  string    `json:"msg"`
}

// Success sends a successful response to the client with the provided data.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code": OK,
		"data": data,
		"msg":  "",
	})
}

// Created is Success with a 201 status, used by create endpoints.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{
		"code": OK,
		"data": data,
		"msg":  "",
	})
}

// HTTPError sends an HTTP error response with the specified HTTP code, error message, and error code.
func HTTPError(c *gin.Context, httpCode int, msg string, errorCode ErrorCode) {
	c.JSON(httpCode, gin.H{
		"code": errorCode,
		"data": nil,
		"msg":  msg,
	})
}

// BadRequestError reports binding failures from Gin ShouldBindJSON,
// ShouldBindQuery and friends.
func BadRequestError(c *gin.Context, msg string) {
	HTTPError(c, http.StatusBadRequest, msg, InvalidRequest)
}

// Error maps a service error onto the HTTP status and envelope code for
// its kind. Internal causes are not leaked to the client.
func Error(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		HTTPError(c, http.StatusBadRequest, apperr.Message(err), InvalidRequest)
	case apperr.KindNotFound:
		HTTPError(c, http.StatusNotFound, apperr.Message(err), NotFound)
	case apperr.KindConflict:
		HTTPError(c, http.StatusConflict, apperr.Message(err), Conflict)
	default:
		HTTPError(c, http.StatusInternalServerError, apperr.Message(err), InternalError)
	}
}
