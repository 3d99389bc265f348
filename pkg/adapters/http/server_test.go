package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/atsim"
	"github.com/aretw0/atsim/internal/testutils"
	httpAdapter "github.com/aretw0/atsim/pkg/adapters/http"
	"github.com/aretw0/atsim/pkg/adapters/memory"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/observability"
	"github.com/aretw0/atsim/pkg/ports"
	"github.com/aretw0/atsim/pkg/stream"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "alice-token"
	bob   = "bob-token"
)

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	models := testutils.Models(t, testutils.CounterModel(5, 1))
	metrics := observability.NewMetrics()
	svc := atsim.New(models, atsim.WithMetrics(metrics))
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	tokens := memory.NewTokens(map[string]int64{alice: 1, bob: 2})
	return httpAdapter.NewHandler(svc, tokens, httpAdapter.WithMetricsHandler(metrics.Handler()))
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func create(t *testing.T, h http.Handler, name string) httpAdapter.Process {
	t.Helper()
	rr := do(t, h, "POST", "/processes", alice, httpAdapter.CreateProcessRequest{ModelId: 5, Name: name})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[httpAdapter.Process](t, rr)
}

func TestGetHealth(t *testing.T) {
	rr := do(t, newHandler(t), "GET", "/health", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])
}

func TestGetInfo(t *testing.T) {
	rr := do(t, newHandler(t), "GET", "/info", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	resp := decode[map[string]string](t, rr)
	assert.Equal(t, "atsim-http", resp["app"])
	assert.NotEmpty(t, resp["version"])
	assert.Equal(t, "1.0.0", resp["api_version"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHandler(t)
	create(t, h, "observed")

	rr := do(t, h, "GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "atsim_processes_running")
}

func TestAuthentication(t *testing.T) {
	h := newHandler(t)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"unknown", "nobody"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, "GET", "/processes", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.NotEmpty(t, decode[httpAdapter.ErrorResponse](t, rr).Error)
		})
	}
}

func TestProcessLifecycle(t *testing.T) {
	h := newHandler(t)

	p := create(t, h, "first")
	assert.Equal(t, domain.ProcessCreated, p.State)
	assert.JSONEq(t,
		`{"current_tick":0,"resources":[{"n":0,"resource_name":"counter"},{"resource_name":"settings"}],"usages":[{"has_triggered":false,"usage_name":"grow_counter","usage_type":"RULE"}]}`,
		string(p.Snapshot))

	rr := do(t, h, "GET", "/processes/"+p.Id, bob, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, h, "GET", "/processes/missing", alice, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, "POST", "/processes/"+p.Id+"/run", alice, httpAdapter.RunProcessRequest{Ticks: 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, "POST", "/processes/"+p.Id+"/pause", alice, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, "POST", "/processes/"+p.Id+"/run", alice, httpAdapter.RunProcessRequest{Ticks: 3, Wait: true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	done := decode[httpAdapter.Process](t, rr)
	assert.Equal(t, domain.ProcessCompleted, done.State)
	assert.Equal(t, int64(3), done.CurrentTick)

	rr = do(t, h, "POST", "/processes/"+p.Id+"/run", alice, httpAdapter.RunProcessRequest{Ticks: 3})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, "GET", "/processes", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]httpAdapter.Process](t, rr), 1)

	rr = do(t, h, "GET", "/processes", bob, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]httpAdapter.Process](t, rr))

	rr = do(t, h, "DELETE", "/processes/"+p.Id, alice, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, "GET", "/processes/"+p.Id, alice, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateProcess_Errors(t *testing.T) {
	h := newHandler(t)

	rr := do(t, h, "POST", "/processes", alice, httpAdapter.CreateProcessRequest{ModelId: 99, Name: "x"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, "POST", "/processes", bob, httpAdapter.CreateProcessRequest{ModelId: 5, Name: "x"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, h, "POST", "/processes", alice, httpAdapter.CreateProcessRequest{ModelId: 5, Name: "  "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPauseAndKill(t *testing.T) {
	h := newHandler(t)
	p := create(t, h, "slow")

	rr := do(t, h, "POST", "/processes/"+p.Id+"/run", alice, httpAdapter.RunProcessRequest{Ticks: 1000, DelayMs: 5})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, h, "POST", "/processes/"+p.Id+"/pause", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, domain.ProcessPaused, decode[httpAdapter.Process](t, rr).State)

	rr = do(t, h, "DELETE", "/processes/"+p.Id, alice, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, "POST", "/processes/"+p.Id+"/kill", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, domain.ProcessKilled, decode[httpAdapter.Process](t, rr).State)

	rr = do(t, h, "POST", "/processes/"+p.Id+"/kill", alice, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/processes/ws?" + query
}

func TestStreamWebSocket_Rejections(t *testing.T) {
	h := newHandler(t)
	p := create(t, h, "watched")
	srv := httptest.NewServer(h)
	defer srv.Close()

	tests := []struct {
		name   string
		query  string
		reason string
	}{
		{"missing token", "process_id=" + p.Id, "missing token"},
		{"missing process", "token=" + alice, "missing process_id"},
		{"bad token", "token=nope&process_id=" + p.Id, "invalid authentication"},
		{"unknown process", "token=" + alice + "&process_id=nope", "process not found"},
		{"foreign process", "token=" + bob + "&process_id=" + p.Id, "forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, tt.query), nil)
			require.NoError(t, err)
			defer conn.Close()

			_, _, err = conn.ReadMessage()
			var closeErr *websocket.CloseError
			require.ErrorAs(t, err, &closeErr)
			assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
			assert.Equal(t, tt.reason, closeErr.Text)
		})
	}
}

func TestStreamWebSocket_Ticks(t *testing.T) {
	h := newHandler(t)
	p := create(t, h, "watched")
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "token="+alice+"&process_id="+p.Id), nil)
	require.NoError(t, err)
	defer conn.Close()

	var first map[string]any
	require.NoError(t, conn.ReadJSON(&first))
	assert.EqualValues(t, 0, first["current_tick"])

	rr := do(t, h, "POST", "/processes/"+p.Id+"/run", alice, httpAdapter.RunProcessRequest{Ticks: 5, DelayMs: 1})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	last := float64(0)
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for last < 5 {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		tick := msg["current_tick"].(float64)
		assert.Greater(t, tick, last)
		last = tick
	}
}

func TestStreamEvents(t *testing.T) {
	h := newHandler(t)
	p := create(t, h, "watched")
	srv := httptest.NewServer(h)
	defer srv.Close()

	t.Run("rejected", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/processes/events?token=nope&process_id=" + p.Id)
		require.NoError(t, err)
		defer resp.Body.Close()

		var buf bytes.Buffer
		_, err = buf.ReadFrom(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "event: close\ndata: invalid authentication\n\n", buf.String())
	})

	t.Run("initial snapshot", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/processes/events?token="+alice+"&process_id="+p.Id, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

		line, err := bufio.NewReader(resp.Body).ReadString('\n')
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(line, `data: {"current_tick":0,`), line)
	})
}

func TestOpenAPISpec(t *testing.T) {
	h := newHandler(t)

	rr := do(t, h, "GET", "/openapi.json", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	doc, err := openapi3.NewLoader().LoadFromData(rr.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	assert.Equal(t, "1.0.0", doc.Info.Version)
	for _, path := range []string{"/processes", "/processes/{id}", "/processes/{id}/run", "/processes/ws", "/processes/events"} {
		assert.NotNil(t, doc.Paths.Value(path), path)
	}

	swagger, err := httpAdapter.GetSwagger()
	require.NoError(t, err)
	assert.Equal(t, doc.Info.Title, swagger.Info.Title)

	rr = do(t, h, "GET", "/swagger", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "/openapi.json")
}

func TestRunProcess_DelayOutOfRange(t *testing.T) {
	h := newHandler(t)
	p := create(t, h, "patient")

	for _, delay := range []int64{-1, math.MaxInt64} {
		rr := do(t, h, "POST", "/processes/"+p.Id+"/run", alice, httpAdapter.RunProcessRequest{Ticks: 1, DelayMs: delay})
		assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		assert.Contains(t, decode[httpAdapter.ErrorResponse](t, rr).Error, "delay_ms")
	}

	rr := do(t, h, "GET", "/processes/"+p.Id, alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.ProcessCreated, decode[httpAdapter.Process](t, rr).State)
}

// unavailableService fails every subscription the way a lost store does.
type unavailableService struct {
	httpAdapter.Service
}

func (unavailableService) Subscribe(context.Context, int64, string, ports.Transport) (*stream.Channel, error) {
	return nil, errors.New("redis: connection refused")
}

func readClose(t *testing.T, url string) *websocket.CloseError {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	return closeErr
}

func TestStreamWebSocket_CloseCodes(t *testing.T) {
	tokens := memory.NewTokens(map[string]int64{alice: 1})

	t.Run("internal failure", func(t *testing.T) {
		srv := httptest.NewServer(httpAdapter.NewHandler(unavailableService{}, tokens))
		defer srv.Close()

		closeErr := readClose(t, wsURL(srv, "token="+alice+"&process_id=p1"))
		assert.Equal(t, websocket.CloseInternalServerErr, closeErr.Code)
		assert.Equal(t, "internal error", closeErr.Text)
	})

	t.Run("shutdown", func(t *testing.T) {
		svc := atsim.New(testutils.Models(t, testutils.CounterModel(5, 1)))
		h := httpAdapter.NewHandler(svc, tokens)
		p := create(t, h, "late")
		require.NoError(t, svc.Shutdown(context.Background()))

		srv := httptest.NewServer(h)
		defer srv.Close()

		closeErr := readClose(t, wsURL(srv, "token="+alice+"&process_id="+p.Id))
		assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
		assert.Equal(t, stream.ReasonShutdown, closeErr.Text)
	})
}
