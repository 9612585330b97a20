package http_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/civix-hazard-service/internal/adapter/http"
	"github.com/couchcryptid/civix-hazard-service/internal/adapter/photo"
	"github.com/couchcryptid/civix-hazard-service/internal/auth"
	"github.com/couchcryptid/civix-hazard-service/internal/domain"
	"github.com/couchcryptid/civix-hazard-service/internal/hazard"
	"github.com/couchcryptid/civix-hazard-service/internal/idgen"
	"github.com/couchcryptid/civix-hazard-service/internal/observability"
	"github.com/couchcryptid/civix-hazard-service/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// --- stubs ---

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type stubGeocoder struct {
	places []domain.Place
	err    error
	near   domain.Point
}

func (g *stubGeocoder) Search(_ context.Context, _ string, near domain.Point) ([]domain.Place, error) {
	g.near = near
	return g.places, g.err
}

func (g *stubGeocoder) ReverseGeocode(context.Context, float64, float64) (domain.Place, error) {
	return domain.Place{}, nil
}

type stubDirections struct {
	routes []domain.RouteAlternative
}

func (d *stubDirections) Directions(context.Context, domain.Point, domain.Point, string) ([]domain.RouteAlternative, error) {
	return d.routes, nil
}

// --- fixture ---

type testAPI struct {
	t         *testing.T
	srv       *httpadapter.Server
	clock     *clockwork.FakeClock
	geocoder  *stubGeocoder
	uploadDir string
}

func newTestAPI(t *testing.T, ready error) *testAPI {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 7, 14, 10, 0, 0, 0, time.UTC))
	domain.SetClock(clock)
	t.Cleanup(func() { domain.SetClock(nil) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	ids, err := idgen.New(0)
	require.NoError(t, err)

	geocoder := &stubGeocoder{}
	directions := &stubDirections{routes: []domain.RouteAlternative{{
		Geometry: domain.LineString{Type: "LineString", Coordinates: [][2]float64{{72.57, 23.02}, {72.58, 23.03}}},
		Distance: 1500,
		Duration: 300,
	}}}
	svc := hazard.NewService(store.NewMemory(), ids, idgen.NewUserID, logger, metrics,
		hazard.WithDirections(directions),
		hazard.WithLocation(time.UTC),
	)

	uploadDir := t.TempDir()
	photos, err := photo.NewLocal(uploadDir)
	require.NoError(t, err)

	srv := httpadapter.NewServer(":0", httpadapter.Dependencies{
		Hazards:   svc,
		Tokens:    auth.NewAuthority("test-secret", 0),
		Geocoder:  geocoder,
		Photos:    photos,
		PhotoIDs:  ids.PhotoID,
		UploadDir: uploadDir,
		Ready:     &mockReadiness{err: ready},
		Metrics:   metrics,
	}, logger)

	return &testAPI{t: t, srv: srv, clock: clock, geocoder: geocoder, uploadDir: uploadDir}
}

func (a *testAPI) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.srv.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(deviceID string) (userID, token string) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/users/register", map[string]string{"deviceId": deviceID}, "")
	require.Contains(a.t, []int{http.StatusOK, http.StatusCreated}, rec.Code)
	var body struct {
		UserID string `json:"userId"`
		Token  string `json:"token"`
	}
	decode(a.t, rec, &body)
	return body.UserID, body.Token
}

func (a *testAPI) createReport(token string, lat, lng float64) int64 {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/reports", map[string]any{
		"latitude": lat, "longitude": lng, "severity": "HIGH",
	}, token)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var report domain.Report
	decode(a.t, rec, &report)
	return report.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"error"`
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code, message string) {
	t.Helper()
	assert.Equal(t, status, rec.Code)
	var body errorEnvelope
	decode(t, rec, &body)
	assert.Equal(t, code, body.Error.Code)
	assert.Equal(t, status, body.Error.Status)
	if message != "" {
		assert.Equal(t, message, body.Error.Message)
	}
}

// --- service endpoints ---

func TestRootAndHealth(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var root map[string]any
	decode(t, rec, &root)
	assert.Equal(t, "Civix API v1.0", root["message"])
	assert.Equal(t, "running", root["status"])

	rec = api.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	assert.Equal(t, http.StatusOK, newTestAPI(t, nil).do(http.MethodGet, "/readyz", nil, "").Code)
	assert.Equal(t, http.StatusServiceUnavailable,
		newTestAPI(t, errors.New("store down")).do(http.MethodGet, "/readyz", nil, "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newTestAPI(t, nil).do(http.MethodGet, "/metrics", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUnknownRoute(t *testing.T) {
	rec := newTestAPI(t, nil).do(http.MethodGet, "/api/nope", nil, "")
	assertError(t, rec, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
}

// --- auth ---

func TestAuth_MissingToken(t *testing.T) {
	rec := newTestAPI(t, nil).do(http.MethodPost, "/api/reports", map[string]any{}, "")
	assertError(t, rec, http.StatusUnauthorized, "UNAUTHORIZED", "Token required")
}

func TestAuth_InvalidToken(t *testing.T) {
	rec := newTestAPI(t, nil).do(http.MethodGet, "/api/users/me", nil, "garbage")
	assertError(t, rec, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token")
}

// --- users ---

func TestRegister_IdempotentPerDevice(t *testing.T) {
	api := newTestAPI(t, nil)

	first := api.do(http.MethodPost, "/api/users/register", map[string]string{"deviceId": "dev-1", "name": "Asha"}, "")
	require.Equal(t, http.StatusCreated, first.Code)
	second := api.do(http.MethodPost, "/api/users/register", map[string]string{"deviceId": "dev-1"}, "")
	require.Equal(t, http.StatusOK, second.Code)

	var a, b map[string]any
	decode(t, first, &a)
	decode(t, second, &b)
	assert.Equal(t, a["userId"], b["userId"])
	assert.Equal(t, a["createdAt"], b["createdAt"])
	assert.NotEmpty(t, b["token"])
}

func TestRegister_MissingDevice(t *testing.T) {
	rec := newTestAPI(t, nil).do(http.MethodPost, "/api/users/register", map[string]string{}, "")
	assertError(t, rec, http.StatusBadRequest, "INVALID_REQUEST", "Device ID required")
}

func TestRegister_MalformedJSON(t *testing.T) {
	api := newTestAPI(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/users/register", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	api.srv.ServeHTTP(rec, req)
	assertError(t, rec, http.StatusBadRequest, "INVALID_REQUEST", "")
}

func TestUpdateProfile_EmptyBodyIsNoop(t *testing.T) {
	api := newTestAPI(t, nil)
	_, token := api.register("dev-1")

	req := httptest.NewRequest(http.MethodPut, "/api/users/me", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/api/users/me", bytes.NewBufferString(`{"name":`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	api.srv.ServeHTTP(rec, req)
	assertError(t, rec, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
}

func TestProfile_GetAndUpdate(t *testing.T) {
	api := newTestAPI(t, nil)
	userID, token := api.register("dev-1")
	api.createReport(token, 23.02, 72.57)

	rec := api.do(http.MethodPut, "/api/users/me", map[string]string{"name": "Ravi", "phone": "999"}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Profile updated successfully"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/users/me", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile domain.Profile
	decode(t, rec, &profile)
	assert.Equal(t, userID, profile.UserID)
	assert.Equal(t, "Ravi", profile.Name)
	assert.Equal(t, "999", profile.Phone)
	assert.Equal(t, 1, profile.ReportsCount)
}

// --- reports ---

func TestCreateReport_RequiresCoordinates(t *testing.T) {
	api := newTestAPI(t, nil)
	_, token := api.register("dev-1")

	rec := api.do(http.MethodPost, "/api/reports", map[string]any{"latitude": 23.0}, token)
	assertError(t, rec, http.StatusBadRequest, "INVALID_REQUEST", "Latitude and longitude required")
}

func TestCreateAndListReports(t *testing.T) {
	api := newTestAPI(t, nil)
	_, token := api.register("dev-1")
	near := api.createReport(token, 23.0225, 72.5714)
	api.createReport(token, 23.5, 73.0)

	rec := api.do(http.MethodGet, "/api/reports?lat=23.0225&lng=72.5714&radius=1000", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var reports []domain.NearbyReport
	decode(t, rec, &reports)
	require.Len(t, reports, 1)
	assert.Equal(t, near, reports[0].ID)
	require.NotNil(t, reports[0].Distance)
	assert.Equal(t, 0, *reports[0].Distance)

	rec = api.do(http.MethodGet, "/api/reports", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []domain.NearbyReport
	decode(t, rec, &all)
	require.Len(t, all, 2)
	for _, r := range all {
		assert.Nil(t, r.Distance)
	}
	assert.NotContains(t, rec.Body.String(), `"distance"`)
}

func TestListReports_EmptyIsArray(t *testing.T) {
	rec := newTestAPI(t, nil).do(http.MethodGet, "/api/reports", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetReport(t *testing.T) {
	api := newTestAPI(t, nil)
	_, token := api.register("dev-1")
	id := api.createReport(token, 23.02, 72.57)
	path := "/api/reports/" + strconv.FormatInt(id, 10)

	rec := api.do(http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report domain.Report
	decode(t, rec, &report)
	assert.Equal(t, "HIGH", report.Severity)

	assertError(t, api.do(http.MethodGet, "/api/reports/1", nil, ""), http.StatusNotFound, "NOT_FOUND", "Report not found")
	assertError(t, api.do(http.MethodGet, "/api/reports/abc", nil, ""), http.StatusNotFound, "NOT_FOUND", "Endpoint not found")

	api.clock.Advance(4*time.Hour + time.Second)
	assertError(t, api.do(http.MethodGet, path, nil, ""), http.StatusGone, "EXPIRED", "Report has expired")
}

func TestDeleteReport_OwnerOnly(t *testing.T) {
	api := newTestAPI(t, nil)
	_, owner := api.register("dev-1")
	_, other := api.register("dev-2")
	id := api.createReport(owner, 23.02, 72.57)
	path := "/api/reports/" + strconv.FormatInt(id, 10)

	assertError(t, api.do(http.MethodDelete, path, nil, other), http.StatusForbidden, "FORBIDDEN", "Not authorized")

	rec := api.do(http.MethodDelete, path, nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Report deleted successfully"}`, rec.Body.String())

	assertError(t, api.do(http.MethodGet, path, nil, ""), http.StatusNotFound, "NOT_FOUND", "")
}

func TestVoteReport(t *testing.T) {
	api := newTestAPI(t, nil)
	_, token := api.register("dev-1")
	id := api.createReport(token, 23.02, 72.57)
	path := "/api/reports/" + strconv.FormatInt(id, 10) + "/vote"

	for _, bad := range []any{2, 0, "1", 0.5, nil} {
		rec := api.do(http.MethodPost, path, map[string]any{"vote": bad}, token)
		assertError(t, rec, http.StatusBadRequest, "INVALID_VOTE", "Vote must be 1 or -1")
	}

	rec := api.do(http.MethodPost, path, map[string]any{"vote": 1}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var result domain.VoteResult
	decode(t, rec, &result)
	assert.Equal(t, domain.VoteResult{ReportID: id, Votes: 1, UserVote: 1}, result)

	rec = api.do(http.MethodPost, path, map[string]any{"vote": -1}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &result)
	assert.Equal(t, -1, result.Votes)

	rec = api.do(http.MethodPost, "/api/reports/42/vote", map[string]any{"vote": 1}, token)
	assertError(t, rec, http.StatusNotFound, "NOT_FOUND", "Report not found")
}

func TestVerifyReport(t *testing.T) {
	api := newTestAPI(t, nil)
	_, token := api.register("dev-1")
	id := api.createReport(token, 23.02, 72.57)

	rec := api.do(http.MethodPost, "/api/reports/"+strconv.FormatInt(id, 10)+"/verify", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var result domain.VerifyResult
	decode(t, rec, &result)
	assert.True(t, result.Verified)
	assert.Equal(t, 5*time.Hour, result.ExpiresAt.Sub(result.VerifiedAt))
}

// --- navigation ---

func TestCheckAlerts(t *testing.T) {
	api := newTestAPI(t, nil)
	_, token := api.register("dev-1")
	api.createReport(token, 23.0225, 72.5714)

	assertError(t, api.do(http.MethodPost, "/api/alerts/check", map[string]any{"latitude": 23.0}, ""),
		http.StatusBadRequest, "INVALID_REQUEST", "Latitude and longitude required")

	rec := api.do(http.MethodPost, "/api/alerts/check", map[string]any{"latitude": 23.0225, "longitude": 72.5714}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var result domain.AlertResult
	decode(t, rec, &result)
	assert.True(t, result.HasHazards)
	require.Len(t, result.Hazards, 1)
	require.NotNil(t, result.AlertMessage)
	assert.Contains(t, *result.AlertMessage, "High severity waterlogging 0m")

	rec = api.do(http.MethodPost, "/api/alerts/check", map[string]any{"latitude": 10.0, "longitude": 10.0}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hasHazards":false,"hazards":[],"alertMessage":null}`, rec.Body.String())
}

func TestScoreRoutes(t *testing.T) {
	api := newTestAPI(t, nil)

	assertError(t, api.do(http.MethodPost, "/api/routes", map[string]any{"origin": map[string]float64{"latitude": 1, "longitude": 1}}, ""),
		http.StatusBadRequest, "INVALID_REQUEST", "Origin and destination required")

	rec := api.do(http.MethodPost, "/api/routes", map[string]any{
		"origin":      map[string]float64{"latitude": 23.02, "longitude": 72.57},
		"destination": map[string]float64{"latitude": 23.03, "longitude": 72.58},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Routes []domain.ScoredRoute `json:"routes"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Routes, 1)
	assert.True(t, body.Routes[0].IsSafe)
	assert.Empty(t, body.Routes[0].Steps)
}

func TestSearch(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(http.MethodGet, "/api/search", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())

	api.geocoder.places = []domain.Place{{Name: "Navrangpura", Address: "Navrangpura, Ahmedabad", Latitude: 23.03, Longitude: 72.56, Type: "locality"}}
	rec = api.do(http.MethodGet, "/api/search?q=navrang", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Results []domain.Place `json:"results"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Navrangpura", body.Results[0].Name)
	assert.Equal(t, domain.Point{Latitude: 23.0225, Longitude: 72.5714}, api.geocoder.near)

	api.do(http.MethodGet, "/api/search?q=x&lat=19.07&lng=72.87", nil, "")
	assert.Equal(t, domain.Point{Latitude: 19.07, Longitude: 72.87}, api.geocoder.near)

	api.geocoder.err = errors.New("mapbox: status 401")
	assertError(t, api.do(http.MethodGet, "/api/search?q=x", nil, ""), http.StatusInternalServerError, "SEARCH_FAILED", "mapbox: status 401")
}

func TestStats(t *testing.T) {
	api := newTestAPI(t, nil)
	_, token := api.register("dev-1")
	api.createReport(token, 23.0225, 72.5714)

	rec := api.do(http.MethodGet, "/api/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.Stats
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.TotalReports)
	assert.Equal(t, 1, stats.ActiveReports)
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 1, stats.ReportsToday)
	assert.Equal(t, []domain.AreaCount{{Name: "23.02, 72.57", ReportCount: 1}}, stats.TopAreas)
}

// --- uploads ---

func TestUpload_Base64(t *testing.T) {
	api := newTestAPI(t, nil)
	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)

	rec := api.do(http.MethodPost, "/api/upload", map[string]string{"photo": encoded}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		PhotoURL string `json:"photoUrl"`
		PhotoID  string `json:"photoId"`
		Size     int64  `json:"size"`
	}
	decode(t, rec, &body)
	assert.Regexp(t, `^photo_\d+$`, body.PhotoID)
	assert.Equal(t, "/api/uploads/"+body.PhotoID+".jpg", body.PhotoURL)
	assert.Equal(t, int64(len(pngBytes)), body.Size)

	served := api.do(http.MethodGet, body.PhotoURL, nil, "")
	require.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, pngBytes, served.Body.Bytes())
}

func TestUpload_Multipart(t *testing.T) {
	api := newTestAPI(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", "flood.png")
	require.NoError(t, err)
	_, err = fw.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	api.srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, float64(len(pngBytes)), body["size"])
}

func TestUpload_Errors(t *testing.T) {
	api := newTestAPI(t, nil)

	assertError(t, api.do(http.MethodPost, "/api/upload", map[string]string{}, ""),
		http.StatusBadRequest, "NO_FILE", "No photo provided")
	assertError(t, api.do(http.MethodPost, "/api/upload", map[string]string{"photo": "%%%not-base64"}, ""),
		http.StatusBadRequest, "UPLOAD_FAILED", "")
	assertError(t, api.do(http.MethodPost, "/api/upload", map[string]string{"photo": base64.StdEncoding.EncodeToString([]byte("plain text"))}, ""),
		http.StatusBadRequest, "UPLOAD_FAILED", "cannot identify image file")
}

func TestServeUpload_Missing(t *testing.T) {
	rec := newTestAPI(t, nil).do(http.MethodGet, "/api/uploads/nope.jpg", nil, "")
	assertError(t, rec, http.StatusNotFound, "NOT_FOUND", "")
}
