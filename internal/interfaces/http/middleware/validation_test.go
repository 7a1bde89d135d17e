package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validationTarget struct {
	Code   string   `json:"code" binding:"required,max=5"`
	Type   string   `json:"type" binding:"required,oneof=in out"`
	Start  int64    `json:"start" binding:"min=1"`
	Tenant string   `json:"tenantId" binding:"omitempty,uuid"`
	Images []string `json:"images" binding:"omitempty,dive,url"`
}

func bindTarget(t *testing.T, body string) []dto.ValidationDetail {
	t.Helper()
	SetupValidator()

	var details []dto.ValidationDetail
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req validationTarget
		details = ValidationDetails(c.ShouldBindJSON(&req))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)
	return details
}

func detailFor(details []dto.ValidationDetail, field string) (dto.ValidationDetail, bool) {
	for _, d := range details {
		if d.Field == field {
			return d, true
		}
	}
	return dto.ValidationDetail{}, false
}

func TestValidationDetails(t *testing.T) {
	t.Run("fields are reported by json name", func(t *testing.T) {
		details := bindTarget(t, `{"code":"toolong","type":"sideways","start":0,"tenantId":"nope","images":["x"]}`)
		require.Len(t, details, 5)

		tests := map[string]string{
			"code":      "Must be at most 5 characters",
			"type":      "Must be one of: in out",
			"start":     "Must be at least 1",
			"tenantId":  "Invalid UUID format",
			"images[0]": "Invalid URL format",
		}
		for field, message := range tests {
			d, ok := detailFor(details, field)
			require.True(t, ok, "missing detail for %s", field)
			assert.Equal(t, message, d.Message)
		}
	})

	t.Run("required", func(t *testing.T) {
		details := bindTarget(t, `{"start":1}`)
		d, ok := detailFor(details, "code")
		require.True(t, ok)
		assert.Equal(t, "This field is required", d.Message)
	})

	t.Run("valid input", func(t *testing.T) {
		assert.Nil(t, bindTarget(t, `{"code":"A1","type":"in","start":3}`))
	})

	t.Run("not a validation error", func(t *testing.T) {
		assert.Nil(t, ValidationDetails(errors.New("boom")))
		assert.Nil(t, ValidationDetails(nil))
	})
}
