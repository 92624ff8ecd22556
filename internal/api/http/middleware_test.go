package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func newMiddlewareApp(t *testing.T, production bool, metrics *observability.Metrics) *fiber.App {
	t.Helper()

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0, production)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return apperrors.NewInternalError(errors.New("connection refused to db host"))
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("ticket", map[string]any{"id": 7})
	})
	return app
}

func errEnvelope(t *testing.T, body io.Reader) map[string]any {
	t.Helper()

	var payload struct {
		Error map[string]any `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return payload.Error
}

func TestInternalErrorDetailOutsideProduction(t *testing.T) {
	t.Parallel()

	app := newMiddlewareApp(t, false, nil)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	envelope := errEnvelope(t, resp.Body)
	if envelope["code"] != "INTERNAL_ERROR" {
		t.Errorf("code = %v", envelope["code"])
	}
	if envelope["error"] != "connection refused to db host" {
		t.Errorf("underlying error not surfaced: %v", envelope["error"])
	}
}

func TestInternalErrorDetailSuppressedInProduction(t *testing.T) {
	t.Parallel()

	app := newMiddlewareApp(t, true, nil)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	defer resp.Body.Close()

	envelope := errEnvelope(t, resp.Body)
	if _, leaked := envelope["error"]; leaked {
		t.Errorf("internal detail leaked in production: %v", envelope["error"])
	}
	if _, leaked := envelope["details"]; leaked {
		t.Errorf("details leaked on 5xx in production: %v", envelope["details"])
	}
	if envelope["message"] != "internal server error" {
		t.Errorf("message = %v", envelope["message"])
	}
}

func TestClientErrorKeepsDetailsInProduction(t *testing.T) {
	t.Parallel()

	app := newMiddlewareApp(t, true, nil)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/missing", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	envelope := errEnvelope(t, resp.Body)
	if envelope["details"] == nil {
		t.Error("4xx details must survive production mode")
	}
}

func TestRequestMetricsRecordMappedStatus(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics()
	app := newMiddlewareApp(t, false, metrics)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	resp.Body.Close()

	snap := metrics.Snapshot()
	if got := snap["requests"]["/boom|GET|500"]; got != 1 {
		t.Errorf("request counter for mapped status = %d, want 1 (have %v)", got, snap["requests"])
	}
	if got := snap["errors"]["/boom|GET|INTERNAL_ERROR"]; got != 1 {
		t.Errorf("error counter = %d, want 1", got)
	}
}
