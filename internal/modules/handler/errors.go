package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/waggle-sensor/facilities/internal/modules/serializer"
	"github.com/waggle-sensor/facilities/internal/modules/service"
	"github.com/waggle-sensor/facilities/internal/pkg/paging"
)

// writeError maps service errors onto response envelopes.
func writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, serializer.ValidationErr(verr.Fields))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, serializer.NotFoundErr("", err))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, serializer.ConflictErr("", err))
	case errors.Is(err, paging.ErrInvalidCursor):
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid cursor", err))
	case errors.Is(err, service.ErrNoObjectStore):
		c.JSON(http.StatusServiceUnavailable, serializer.Err(http.StatusServiceUnavailable, "object store unavailable", err))
	default:
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
	}
}

// idParam reads a numeric path parameter, writing a 400 when it is not one.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid "+name, err))
		return 0, false
	}
	return uint(id), true
}

func limitOf(limit *int) int {
	// If limit is not provided, set it to 0 to fetch all rows
	if limit == nil {
		return 0
	}
	return *limit
}
