package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"designcal/internal/config"
	"designcal/internal/layout"
	"designcal/internal/model"
	"designcal/internal/store"
)

type fakeFeeds struct {
	appts  map[string][]model.Appointment
	allDay map[string][]model.Occurrence
}

func (f *fakeFeeds) Appointments(date string) []model.Appointment { return f.appts[date] }
func (f *fakeFeeds) AllDay(date string) []model.Occurrence        { return f.allDay[date] }

func newTestServer(t *testing.T) (*Server, *store.Memory) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.CacheDir = t.TempDir()

	feeds := &fakeFeeds{
		appts: map[string][]model.Appointment{
			"2026-03-10": {{
				ID: "ext-1", Kind: model.KindExternal, Title: "Busy", Date: "2026-03-10",
				StartTime: "09:30", EndTime: "10:30", Source: "lea",
			}},
		},
		allDay: map[string][]model.Occurrence{
			"2026-03-10": {{SourceName: "Léa", Summary: "Trade fair", AllDay: true}},
		},
	}

	repo := store.NewMemory()
	srv := NewServer(cfg, repo, feeds)
	srv.now = func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) }
	return srv, repo
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const visitJSON = `{"kind":"showroom_visit","title":"Kitchen review","client_name":"Martin","date":"2026-03-10","start_time":"09:00","end_time":"10:00"}`

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestBasicAuth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	srv.cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "s3cret"}
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/appointments?date=2026-03-10", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/appointments?date=2026-03-10", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/appointments?date=2026-03-10", nil)
	req.SetBasicAuth("admin", "s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAppointments_CRUD(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/appointments", visitJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created model.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Kitchen review", created.Title)
	assert.False(t, created.CreatedAt.IsZero())

	rec = do(t, h, http.MethodGet, "/api/appointments/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/appointments?date=2026-03-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []model.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, created.ID, listed[0].ID)
	assert.Equal(t, "ext-1", listed[1].ID)

	updated := strings.Replace(visitJSON, "10:00", "11:00", 1)
	rec = do(t, h, http.MethodPut, "/api/appointments/"+created.ID, updated)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got model.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "11:00", got.EndTime)

	rec = do(t, h, http.MethodDelete, "/api/appointments/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/appointments/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAppointments_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		errMsg string
	}{
		{
			name:   "end before start",
			method: http.MethodPost,
			target: "/api/appointments",
			body:   strings.Replace(visitJSON, `"end_time":"10:00"`, `"end_time":"08:00"`, 1),
			status: http.StatusBadRequest,
			errMsg: "ends at or before it starts",
		},
		{
			name:   "missing title",
			method: http.MethodPost,
			target: "/api/appointments",
			body:   strings.Replace(visitJSON, `"title":"Kitchen review",`, "", 1),
			status: http.StatusBadRequest,
			errMsg: "title",
		},
		{
			name:   "external kind",
			method: http.MethodPost,
			target: "/api/appointments",
			body:   strings.Replace(visitJSON, "showroom_visit", "external", 1),
			status: http.StatusBadRequest,
			errMsg: "read-only",
		},
		{
			name:   "unknown field",
			method: http.MethodPost,
			target: "/api/appointments",
			body:   `{"title":"x","colour":"red"}`,
			status: http.StatusBadRequest,
			errMsg: "colour",
		},
		{
			name:   "bad date",
			method: http.MethodGet,
			target: "/api/appointments?date=10/03/2026",
			status: http.StatusBadRequest,
			errMsg: "YYYY-MM-DD",
		},
		{
			name:   "get missing",
			method: http.MethodGet,
			target: "/api/appointments/nope",
			status: http.StatusNotFound,
			errMsg: "not found",
		},
		{
			name:   "delete feed appointment",
			method: http.MethodDelete,
			target: "/api/appointments/ext-1",
			status: http.StatusNotFound,
			errMsg: "not found",
		},
		{
			name:   "update missing",
			method: http.MethodPut,
			target: "/api/appointments/nope",
			body:   visitJSON,
			status: http.StatusNotFound,
			errMsg: "not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, _ := newTestServer(t)
			rec := do(t, srv.Handler(), tt.method, tt.target, tt.body)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.errMsg)
		})
	}
}

func TestDayLayout(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/appointments", visitJSON)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/layout?date=2026-03-10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp layoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2026-03-10", resp.Date)
	require.Len(t, resp.Appointments, 2)
	assert.InDelta(t, 49.0, resp.Appointments[0].Position.WidthPercent, 1e-9)
	assert.InDelta(t, 0.5, resp.Appointments[0].Position.LeftPercent, 1e-9)
	assert.InDelta(t, 49.0, resp.Appointments[1].Position.WidthPercent, 1e-9)
	assert.InDelta(t, 50.5, resp.Appointments[1].Position.LeftPercent, 1e-9)
	require.Len(t, resp.AllDay, 1)
	assert.Equal(t, "Trade fair", resp.AllDay[0].Summary)

	// A third overlapping appointment must show up despite the cache.
	third := strings.Replace(visitJSON, `"start_time":"09:00"`, `"start_time":"09:45"`, 1)
	rec = do(t, h, http.MethodPost, "/api/appointments", third)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/layout?date=2026-03-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Appointments, 3)
	for _, a := range resp.Appointments {
		assert.Equal(t, 3, a.Position.Lanes, a.ID)
	}
}

func TestDayLayout_Cache(t *testing.T) {
	t.Parallel()

	srv, repo := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/layout?date=2026-03-10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Writes behind the API's back are only seen once the entry expires.
	_, err := repo.Save(t.Context(), &model.Appointment{
		Kind: model.KindMeasurement, Title: "Measure", Date: "2026-03-10", StartTime: "14:00", EndTime: "15:00",
	})
	require.NoError(t, err)

	var resp layoutResponse
	rec = do(t, h, http.MethodGet, "/api/layout?date=2026-03-10", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Appointments, 1)

	srv.now = func() time.Time { return time.Date(2026, 3, 10, 8, 1, 0, 0, time.UTC) }
	rec = do(t, h, http.MethodGet, "/api/layout?date=2026-03-10", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Appointments, 2)
}

func TestComputeLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		status int
		want   map[string]layout.Position
		errMsg string
	}{
		{
			name:   "empty",
			body:   `{"events":[]}`,
			status: http.StatusOK,
			want:   map[string]layout.Position{},
		},
		{
			name:   "singleton",
			body:   `{"events":[{"id":"a","start_time":"08:00","end_time":"09:00"}]}`,
			status: http.StatusOK,
			want: map[string]layout.Position{
				"a": {WidthPercent: 97, LeftPercent: 1.5, Lane: 0, Lanes: 1},
			},
		},
		{
			name:   "two lanes",
			body:   `{"events":[{"id":"a","start_time":"09:00","end_time":"10:00"},{"id":"b","start_time":"09:30","end_time":"10:30"}]}`,
			status: http.StatusOK,
			want: map[string]layout.Position{
				"a": {WidthPercent: 49, LeftPercent: 0.5, Lane: 0, Lanes: 2},
				"b": {WidthPercent: 49, LeftPercent: 50.5, Lane: 1, Lanes: 2},
			},
		},
		{
			name:   "duplicate id",
			body:   `{"events":[{"id":"a","start_time":"09:00","end_time":"10:00"},{"id":"a","start_time":"11:00","end_time":"12:00"}]}`,
			status: http.StatusBadRequest,
			errMsg: `duplicate id \"a\"`,
		},
		{
			name:   "malformed time",
			body:   `{"events":[{"id":"a","start_time":"9h","end_time":"10:00"}]}`,
			status: http.StatusBadRequest,
			errMsg: "start_time",
		},
		{
			name:   "invalid json",
			body:   `{"events":`,
			status: http.StatusBadRequest,
			errMsg: "failed to decode JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, _ := newTestServer(t)
			rec := do(t, srv.Handler(), http.MethodPost, "/api/layout", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			if tt.errMsg != "" {
				assert.Contains(t, rec.Body.String(), tt.errMsg)
				return
			}
			var resp computeResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Positions)
		})
	}
}

func TestCalendar(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/appointments", visitJSON)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/calendar?date=2026-03-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, `data-ready="true"`)
	assert.Contains(t, body, "Kitchen review")
	assert.Contains(t, body, "Trade fair")
	assert.Contains(t, body, "2026-03-09")
	assert.Contains(t, body, "2026-03-11")

	rec = do(t, h, http.MethodGet, "/calendar?date=2026-03-10&view=week", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "Week of 2026-03-09")
	assert.Contains(t, body, "Kitchen review")
	assert.Contains(t, body, "2026-03-16")

	rec = do(t, h, http.MethodGet, "/calendar?date=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreview(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/preview.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	path := srv.cfg.PreviewPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o644))

	rec = do(t, h, http.MethodGet, "/preview.png", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestServe_Shutdown(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, srv.Handler()) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
