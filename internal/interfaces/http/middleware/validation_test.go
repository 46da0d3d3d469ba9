package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/opsdash/purchasing/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineRequest struct {
	Quantity        int              `json:"quantity" binding:"required,gt=0"`
	UnitPrice       *decimal.Decimal `json:"unit_price" binding:"omitempty,gte=0"`
	DiscountPercent decimal.Decimal  `json:"discount_percent" binding:"gte=0,lte=100"`
	Reason          string           `json:"reason" binding:"max=5"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req lineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(req))
	})
	return router
}

func postJSON(router *gin.Engine, body string) (*httptest.ResponseRecorder, dto.Response) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp dto.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func fields(resp dto.Response) map[string]string {
	out := make(map[string]string)
	if resp.Error == nil {
		return out
	}
	for _, d := range resp.Error.Details {
		out[d.Field] = d.Message
	}
	return out
}

func TestValidation_AcceptsValidBody(t *testing.T) {
	w, resp := postJSON(newValidationRouter(), `{"quantity": 3, "unit_price": "12.50", "discount_percent": "10"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestValidation_UsesJSONNames(t *testing.T) {
	w, resp := postJSON(newValidationRouter(), `{"quantity": 0, "reason": "too long"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)

	got := fields(resp)
	assert.Equal(t, "This field is required", got["quantity"])
	assert.Equal(t, "Must be at most 5 characters", got["reason"])
}

func TestValidation_Decimals(t *testing.T) {
	router := newValidationRouter()

	t.Run("negative price", func(t *testing.T) {
		_, resp := postJSON(router, `{"quantity": 1, "unit_price": "-1"}`)
		assert.Equal(t, "Must be greater than or equal to 0", fields(resp)["unit_price"])
	})

	t.Run("discount above 100", func(t *testing.T) {
		_, resp := postJSON(router, `{"quantity": 1, "discount_percent": "100.5"}`)
		assert.Equal(t, "Must be less than or equal to 100", fields(resp)["discount_percent"])
	})
}

func TestValidation_MalformedJSON(t *testing.T) {
	w, resp := postJSON(newValidationRouter(), `{"quantity": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fields(resp), "body")
}
