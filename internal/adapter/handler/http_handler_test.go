package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/obesho/internal/core/domain"
)

type httpFixture struct {
	*testStack
	e *echo.Echo
}

func newHTTPFixture(t *testing.T, health HealthChecker) *httpFixture {
	t.Helper()
	stack := newTestStack(t)
	h := NewHTTPHandler(stack.orders, stack.catalog, health, "test", zap.NewNop())
	return &httpFixture{testStack: stack, e: NewRouter(h)}
}

func (f *httpFixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *httpFixture) postJSON(t *testing.T, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/orderitem/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return f.do(t, req)
}

func (f *httpFixture) postForm(t *testing.T, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/orderitem/", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return f.do(t, req)
}

func (f *httpFixture) stockOf(t *testing.T, modelID domain.ModelID, sizeID domain.SizeID) int {
	t.Helper()
	catalog, err := f.catalog.Catalog(context.Background())
	require.NoError(t, err)
	for _, m := range catalog.Models {
		if m.ID != modelID {
			continue
		}
		for _, s := range m.AvailableSizes {
			if s.SizeID == sizeID {
				return s.Quantity
			}
		}
	}
	t.Fatalf("no stock entry for model %d size %d", modelID, sizeID)
	return 0
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHTTP_HomeAndVersion(t *testing.T) {
	f := newHTTPFixture(t, nil)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	home := decode[map[string]string](t, rec)
	assert.Equal(t, "ObeSho API", home["name"])
	assert.Equal(t, "test", home["version"])

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/version/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", decode[map[string]string](t, rec)["version"])
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestHTTP_HealthCheck(t *testing.T) {
	f := newHTTPFixture(t, nil)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	f = newHTTPFixture(t, failingPinger{})
	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHTTP_Catalog(t *testing.T) {
	f := newHTTPFixture(t, nil)

	for _, path := range []string{"/catalog", "/catalog/"} {
		rec := f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)

		catalog := decode[CatalogResponse](t, rec)
		require.Len(t, catalog.Models, 10)
		require.Len(t, catalog.Sizes, 11)
		assert.Equal(t, "Alpha", catalog.Models[0].Name)
		assert.Equal(t, "31", catalog.Models[0].Price.String())
		assert.Contains(t, rec.Body.String(), `"price":31,`)
		assert.Equal(t, SizeStockDTO{SizeID: 35, Qty: 3}, catalog.Models[0].AvailableSizes[0])
	}
}

func TestHTTP_AddItem_NewOrderThenMerge(t *testing.T) {
	f := newHTTPFixture(t, nil)

	rec := f.postJSON(t, `{"model_id": 1, "size_id": 35}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[AddItemResponse](t, rec)
	assert.NotZero(t, first.Order.ID)
	assert.Equal(t, string(domain.OrderStatusOpen), first.Order.Status)
	assert.Equal(t, 1, first.OrderItem.Qty, "quantity defaults to one")
	assert.Equal(t, 2, first.AvailableSize.Qty)
	assert.False(t, first.Merged)

	form := url.Values{}
	form.Set("order_id", strconv.FormatInt(first.Order.ID, 10))
	form.Set("model_id", "1")
	form.Set("size_id", "35")
	form.Set("quantity", "2")
	rec = f.postForm(t, form)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[AddItemResponse](t, rec)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, 3, second.OrderItem.Qty)
	assert.Zero(t, second.AvailableSize.Qty)
	assert.True(t, second.Merged)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/order/"+strconv.FormatInt(first.Order.ID, 10), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode[OrderDTO](t, rec)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Qty)
}

func TestHTTP_AddItem_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"empty order id", `{"order_id": "", "model_id": 1, "size_id": 35}`, http.StatusBadRequest},
		{"zero quantity", `{"model_id": 1, "size_id": 35, "quantity": 0}`, http.StatusBadRequest},
		{"missing model", `{"size_id": 35}`, http.StatusBadRequest},
		{"malformed json", `{"model_id": `, http.StatusBadRequest},
		{"unstocked pair", `{"model_id": 1, "size_id": 99}`, http.StatusNotFound},
		{"sold out", `{"model_id": 1, "size_id": 36}`, http.StatusGone},
		{"missing order", `{"order_id": 4242, "model_id": 1, "size_id": 35}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHTTPFixture(t, nil)

			rec := f.postJSON(t, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.status, body.StatusCode)
			assert.NotEmpty(t, body.Message)

			assert.Equal(t, 3, f.stockOf(t, 1, 35), "failed requests leave stock untouched")
		})
	}
}

func TestHTTP_AddItem_FormRejectsEmptyOrderID(t *testing.T) {
	f := newHTTPFixture(t, nil)

	form := url.Values{}
	form.Set("order_id", "")
	form.Set("model_id", "1")
	form.Set("size_id", "35")
	rec := f.postForm(t, form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_AddItem_IdempotencyKeyReplays(t *testing.T) {
	f := newHTTPFixture(t, nil)

	rec := f.postJSON(t, `{"model_id": 2, "size_id": 37}`, HeaderIdempotencyKey, "checkout-1")
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[AddItemResponse](t, rec)

	rec = f.postJSON(t, `{"model_id": 2, "size_id": 37}`, HeaderIdempotencyKey, "checkout-1")
	require.Equal(t, http.StatusOK, rec.Code)
	replay := decode[AddItemResponse](t, rec)

	assert.Equal(t, first.Order.ID, replay.Order.ID)
	assert.Equal(t, 2, f.stockOf(t, 2, 37), "the replay must not reserve again")
}

func TestHTTP_GetOrder_Errors(t *testing.T) {
	f := newHTTPFixture(t, nil)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/order/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/order/77", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_CORSPreflight(t *testing.T) {
	f := newHTTPFixture(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/orderitem/", nil)
	req.Header.Set(echo.HeaderOrigin, "http://shop.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := f.do(t, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), "x-xsrf-token")
}

func TestHTTP_RequestID(t *testing.T) {
	f := newHTTPFixture(t, nil)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/version/", nil))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}
