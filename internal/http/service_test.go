package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/shop-simulator/internal/apperr"
	"github.com/tuanvumaihuynh/shop-simulator/internal/config"
	"github.com/tuanvumaihuynh/shop-simulator/internal/event"
	httpsvc "github.com/tuanvumaihuynh/shop-simulator/internal/http"
	"github.com/tuanvumaihuynh/shop-simulator/internal/http/apierr"
	"github.com/tuanvumaihuynh/shop-simulator/internal/inventory"
	"github.com/tuanvumaihuynh/shop-simulator/internal/metric"
	"github.com/tuanvumaihuynh/shop-simulator/internal/model"
	"github.com/tuanvumaihuynh/shop-simulator/internal/service"
)

type fakeSimulator struct {
	err error
}

func (f *fakeSimulator) StartCustomerRun() (model.Run, error) {
	return model.Run{ID: uuid.New(), Kind: model.RunKindCustomers, StartedAt: time.Now()}, f.err
}

func (f *fakeSimulator) StartReplenishmentRun() (model.Run, error) {
	return model.Run{ID: uuid.New(), Kind: model.RunKindReaccounting, StartedAt: time.Now()}, f.err
}

type testServer struct {
	svc    *httpsvc.Service
	router chi.Router
	bus    *event.Bus
}

func newTestServer(t *testing.T, sim *fakeSimulator) testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	reg := prometheus.NewRegistry()
	bus := event.NewBus(logger)
	catalog := inventory.NewCatalog(inventory.DefaultProducts(), decimal.NewFromInt(100))

	svc := httpsvc.New(
		config.HTTP{Swagger: true, CorsOrigins: []string{"*"}},
		logger,
		metric.New(reg),
		reg,
		service.NewShopService(catalog, sim),
		bus,
	)

	return testServer{svc: svc, router: svc.Router(), bus: bus}
}

func (s testServer) do(method, target string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, httptest.NewRequest(method, target, nil))
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) apierr.ErrorResponse {
	t.Helper()

	var body apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func TestSimulationRoutes(t *testing.T) {
	t.Run("Should accept a customer run", func(t *testing.T) {
		srv := newTestServer(t, &fakeSimulator{})

		resp := srv.do(http.MethodPost, "/v1/simulations/customers")

		assert.Equal(t, http.StatusAccepted, resp.Code)
		var body httpsvc.RunResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, model.RunKindCustomers, body.Kind)
		assert.NotEqual(t, uuid.Nil, body.RunID)
	})

	t.Run("Should accept a replenishment run", func(t *testing.T) {
		srv := newTestServer(t, &fakeSimulator{})

		resp := srv.do(http.MethodPost, "/v1/simulations/replenishments")

		assert.Equal(t, http.StatusAccepted, resp.Code)
		var body httpsvc.RunResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, model.RunKindReaccounting, body.Kind)
	})

	t.Run("Should return 503 when the simulator is stopping", func(t *testing.T) {
		srv := newTestServer(t, &fakeSimulator{err: apperr.SimulatorStoppedErr})

		resp := srv.do(http.MethodPost, "/v1/simulations/customers")

		assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
		assert.Equal(t, apperr.SimulatorStoppedCode, decodeError(t, resp).Code)
	})
}

func TestCatalogRoutes(t *testing.T) {
	srv := newTestServer(t, &fakeSimulator{})

	t.Run("Should list every product", func(t *testing.T) {
		resp := srv.do(http.MethodGet, "/v1/products")

		require.Equal(t, http.StatusOK, resp.Code)
		var body []httpsvc.ProductResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		require.Len(t, body, 3)
		assert.Equal(t, "Product A", body[0].Name)
		assert.True(t, decimal.NewFromInt(20).Equal(body[0].SellingPrice))
	})

	t.Run("Should filter products by minimum stock", func(t *testing.T) {
		resp := srv.do(http.MethodGet, "/v1/products?min_stock=30")

		require.Equal(t, http.StatusOK, resp.Code)
		var body []httpsvc.ProductResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Len(t, body, 2)
	})

	t.Run("Should reject an invalid minimum stock", func(t *testing.T) {
		resp := srv.do(http.MethodGet, "/v1/products?min_stock=-1")

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		body := decodeError(t, resp)
		assert.Equal(t, apperr.ValidationErrorCode, body.Code)
		assert.Contains(t, body.Details, "min_stock")
	})

	t.Run("Should get a product by name", func(t *testing.T) {
		resp := srv.do(http.MethodGet, "/v1/products/Product%20C")

		require.Equal(t, http.StatusOK, resp.Code)
		var body httpsvc.ProductResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, 20, body.UnitsInStock)
	})

	t.Run("Should return 404 for an unknown product", func(t *testing.T) {
		resp := srv.do(http.MethodGet, "/v1/products/nope")

		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, apperr.ProductNotFoundCode, decodeError(t, resp).Code)
	})

	t.Run("Should return the cash balance as a decimal string", func(t *testing.T) {
		resp := srv.do(http.MethodGet, "/v1/balance")

		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `{"cash_balance":"100"}`, resp.Body.String())
	})

	t.Run("Should return 404 for an unknown route", func(t *testing.T) {
		resp := srv.do(http.MethodGet, "/v1/nope")

		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, apperr.RouteNotFoundCode, decodeError(t, resp).Code)
	})

	t.Run("Should expose prometheus metrics", func(t *testing.T) {
		resp := srv.do(http.MethodGet, "/metrics")

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), "shop_http_requests_total")
	})

	t.Run("Should serve the docs", func(t *testing.T) {
		resp := srv.do(http.MethodGet, "/docs/openapi.yml")

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), "/v1/simulations/customers")
	})
}

func TestEventStream(t *testing.T) {
	srv := newTestServer(t, &fakeSimulator{})
	ts := httptest.NewServer(srv.router)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/events", nil)
	require.NoError(t, err)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readLine := func() string {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		return strings.TrimSuffix(line, "\n")
	}

	require.Equal(t, ": connected", readLine())
	require.Empty(t, readLine())

	t.Run("Should stream committed mutations", func(t *testing.T) {
		srv.bus.PublishMutation(ctx, model.CustomerAction{
			Sequence:       7,
			ProductName:    "Product A",
			UnitsPurchased: 10,
			UnitsInStock:   40,
			AmountPaid:     decimal.NewFromInt(200),
			CashBalance:    decimal.NewFromInt(300),
		})

		assert.Equal(t, "id: 7", readLine())
		assert.Equal(t, "event: "+event.TopicCatalogChanged, readLine())

		data := strings.TrimPrefix(readLine(), "data: ")
		assert.JSONEq(t, `{"sequence":7,"kind":"customer","product_name":"Product A","units_in_stock":40,"cash_balance":"300"}`, data)
	})
}

func TestShutdownEndsEventStreams(t *testing.T) {
	srv := newTestServer(t, &fakeSimulator{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cleanup := srv.svc.Serve(context.Background(), ln, srv.router)

	resp, err := http.Get("http://" + ln.Addr().String() + "/v1/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": connected\n", line)

	t.Run("Should shut down promptly with an open stream", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, cleanup(context.Background()))
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
