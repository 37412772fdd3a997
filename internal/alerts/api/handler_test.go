package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ra-resale/internal/alerts"
	"ra-resale/internal/alerts/api"
	"ra-resale/internal/fetch"
	"ra-resale/internal/models"
	"ra-resale/internal/utils"
)

// stubService returns canned values so the tests exercise only the HTTP
// layer.
type stubService struct {
	tracker      *models.Tracker
	subscribeErr error
	updated      []alerts.UpdateResult
	sent         []alerts.SendResult
	pruned       []alerts.PruneResult
}

func (s *stubService) Subscribe(ctx context.Context, url, email string) (*models.Tracker, error) {
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	return s.tracker, nil
}

func (s *stubService) UpdateAll(ctx context.Context) ([]alerts.UpdateResult, error) {
	return s.updated, nil
}

func (s *stubService) SendAlerts(ctx context.Context) ([]alerts.SendResult, error) {
	return s.sent, nil
}

func (s *stubService) PruneExpired(ctx context.Context) ([]alerts.PruneResult, error) {
	return s.pruned, nil
}

func newTestRouter(service *stubService) chi.Router {
	r := chi.NewRouter()
	api.NewHandler(service, nil).RegisterRoutes(r)
	return r
}

func postForm(router http.Handler, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestSubscribeCreated(t *testing.T) {
	service := &stubService{tracker: &models.Tracker{
		ID: "t1", EventID: "e1", Email: "example@example.com",
	}}
	router := newTestRouter(service)

	rec := postForm(router, url.Values{
		"url":   {"https://www.residentadvisor.net/events/1234567"},
		"email": {"example@example.com"},
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Tracker created", resp.Message)
}

func TestSubscribeRejectsBadEmail(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := postForm(router, url.Values{
		"url":   {"https://www.residentadvisor.net/events/1234567"},
		"email": {"not-an-address"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "form", resp.Error)
	assert.Equal(t, "Something in the form isn't right.", resp.Message)
}

func TestSubscribeRejectsBadURL(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := postForm(router, url.Values{
		"url":   {"https://www.residentadvisor.net/news/1234567"},
		"email": {"example@example.com"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "url", resp.Error)
	assert.Equal(t, "This doesn't look like a valid event page.", resp.Message)
}

func TestSubscribeErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{"expired event", alerts.ErrEventExpired, http.StatusUnprocessableEntity, "date"},
		{"resale inactive", alerts.ErrResaleInactive, http.StatusUnprocessableEntity, "inactive"},
		{"site timeout", fetch.ErrTimeout, http.StatusBadGateway, "timeout"},
		{"site unavailable", fetch.ErrUnavailable, http.StatusBadGateway, "timeout"},
		{"malformed url", fetch.ErrMalformedURL, http.StatusBadRequest, "url"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&stubService{subscribeErr: tc.err})

			rec := postForm(router, url.Values{
				"url":   {"https://www.residentadvisor.net/events/1234567"},
				"email": {"example@example.com"},
			})

			assert.Equal(t, tc.wantStatus, rec.Code)
			resp := decodeResponse(t, rec)
			assert.Equal(t, tc.wantReason, resp.Error)
		})
	}
}

func TestCronEndpointsHiddenWithoutHeader(t *testing.T) {
	router := newTestRouter(&stubService{})

	for _, path := range []string{"/update", "/send", "/prune"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, "path %s", path)
	}
}

func TestUpdateWithCronHeader(t *testing.T) {
	service := &stubService{updated: []alerts.UpdateResult{
		{Event: "Resident Advisor Event", URL: "https://www.residentadvisor.net/events/1234567"},
	}}
	router := newTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/update", nil)
	req.Header.Set("X-Appengine-Cron", "true")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Update cycle complete", resp.Message)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	updated, ok := data["updated"].([]interface{})
	require.True(t, ok)
	assert.Len(t, updated, 1)
}

func TestSendWithCronHeader(t *testing.T) {
	service := &stubService{sent: []alerts.SendResult{
		{Email: "example@example.com", Event: "Resident Advisor Event"},
	}}
	router := newTestRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/send", nil)
	req.Header.Set("X-Appengine-Cron", "true")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "Send cycle complete", resp.Message)
}

func TestPruneWithCronHeader(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/prune", nil)
	req.Header.Set("X-Appengine-Cron", "true")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "Prune cycle complete", resp.Message)
}
