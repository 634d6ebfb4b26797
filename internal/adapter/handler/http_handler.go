package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/obesho/internal/core/domain"
	"github.com/rl1809/obesho/internal/core/service"
)

// HeaderIdempotencyKey makes POST /orderitem/ safe to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	orders  *service.OrderComposer
	catalog *service.CatalogService
	health  HealthChecker
	version string
	log     *zap.Logger
}

func NewHTTPHandler(orders *service.OrderComposer, catalog *service.CatalogService, health HealthChecker, version string, log *zap.Logger) *HTTPHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPHandler{
		orders:  orders,
		catalog: catalog,
		health:  health,
		version: version,
		log:     log,
	}
}

// NewRouter wires the public routes with CORS, request ids and zap request logging.
func NewRouter(h *HTTPHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = h.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderContentType, "x-xsrf-token", HeaderIdempotencyKey},
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodOptions, http.MethodHead,
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			h.log.Info("request", fields...)
			return nil
		},
	}))

	e.GET("/", h.Home)
	e.GET("/version/", h.Version)
	e.GET("/health", h.HealthCheck)
	e.GET("/catalog", h.Catalog)
	e.GET("/catalog/", h.Catalog)
	e.POST("/orderitem/", h.AddItem)
	e.GET("/order/:id", h.GetOrder)
	return e
}

func (h *HTTPHandler) Home(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"name": "ObeSho API", "version": h.version})
}

func (h *HTTPHandler) Version(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"version": h.version})
}

func (h *HTTPHandler) HealthCheck(c echo.Context) error {
	if h.health != nil {
		if err := h.health.Ping(c.Request().Context()); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (h *HTTPHandler) Catalog(c echo.Context) error {
	catalog, err := h.catalog.Catalog(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newCatalogResponse(catalog))
}

func (h *HTTPHandler) AddItem(c echo.Context) error {
	body, err := bindAddItem(c)
	if err != nil {
		return err
	}
	req, err := body.toDomain()
	if err != nil {
		return err
	}

	key := c.Request().Header.Get(HeaderIdempotencyKey)
	res, err := h.orders.AddItemOnce(c.Request().Context(), key, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newAddItemResponse(res))
}

func (h *HTTPHandler) GetOrder(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return domain.Invalid("order id must be an integer")
	}
	order, err := h.orders.Order(c.Request().Context(), domain.OrderID(id))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newOrderDTO(order))
}

// bindAddItem accepts a JSON body or form fields. A present but empty order_id is rejected.
func bindAddItem(c echo.Context) (AddItemRequest, error) {
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ctype, echo.MIMEApplicationForm) || strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		return bindAddItemForm(c)
	}

	var body AddItemRequest
	if err := c.Bind(&body); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusUnsupportedMediaType {
			return AddItemRequest{}, err
		}
		return AddItemRequest{}, domain.Invalid("malformed request body")
	}
	return body, nil
}

func bindAddItemForm(c echo.Context) (AddItemRequest, error) {
	form, err := c.FormParams()
	if err != nil {
		return AddItemRequest{}, domain.Invalid("malformed form body")
	}

	var body AddItemRequest
	if values, ok := form["order_id"]; ok {
		id, err := formInt(values[0], "order_id")
		if err != nil {
			return AddItemRequest{}, err
		}
		body.OrderID = &id
	}
	if body.ModelID, err = formInt(form.Get("model_id"), "model_id"); err != nil {
		return AddItemRequest{}, err
	}
	if body.SizeID, err = formInt(form.Get("size_id"), "size_id"); err != nil {
		return AddItemRequest{}, err
	}
	if values, ok := form["quantity"]; ok {
		qty, err := formInt(values[0], "quantity")
		if err != nil {
			return AddItemRequest{}, err
		}
		q := int(qty)
		body.Quantity = &q
	}
	return body, nil
}

func formInt(value, field string) (int64, error) {
	if value == "" {
		return 0, domain.Invalid(field + " is required")
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, domain.Invalid(field + " must be an integer")
	}
	return n, nil
}

func (h *HTTPHandler) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var code int
	var message string
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code, message = he.Code, fmt.Sprint(he.Message)
	} else {
		code, message = httpStatus(err)
	}
	if code >= http.StatusInternalServerError && !domain.IsContextError(err) {
		h.log.Error("request failed",
			zap.String("path", c.Path()),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{StatusCode: code, Message: message})
	}
	if err != nil {
		h.log.Warn("failed to write error response", zap.Error(err))
	}
}
