package serializer

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestErr_Helpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cause := errors.New("boom")

	tests := []struct {
		name string
		res  Response
		code int
		msg  string
	}{
		{name: "param", res: ParamErr("", cause), code: http.StatusBadRequest, msg: "parameter error"},
		{name: "auth", res: AuthErr(""), code: http.StatusUnauthorized, msg: "authentication error"},
		{name: "not found", res: NotFoundErr("", cause), code: http.StatusNotFound, msg: "not found"},
		{name: "conflict", res: ConflictErr("node exists", cause), code: http.StatusConflict, msg: "node exists"},
		{name: "db", res: DBErr("", cause), code: http.StatusInternalServerError, msg: "database error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.res.Code)
			assert.Equal(t, tt.msg, tt.res.Msg)
		})
	}

	assert.Equal(t, "boom", ParamErr("", cause).Error)
	assert.Empty(t, AuthErr("").Error)
}

func TestErr_HidesDetailInRelease(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	defer gin.SetMode(gin.TestMode)

	res := DBErr("", errors.New("pq: connection refused"))
	assert.Empty(t, res.Error)
}

func TestValidationErr(t *testing.T) {
	res := ValidationErr(FieldErrors{"pi_name": {"This field is required when requesting a new project."}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "validation error", res.Msg)
	data, ok := res.Data.(ValidationData)
	assert.True(t, ok)
	assert.Equal(t, []string{"This field is required when requesting a new project."}, data.Fields["pi_name"])
}
