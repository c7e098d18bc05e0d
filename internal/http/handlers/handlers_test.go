package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manishonc/car-rental/internal/core"
	"github.com/manishonc/car-rental/internal/sessions"
	"github.com/manishonc/car-rental/internal/store/memory"
)

type stubOrderAPI struct {
	mu        sync.Mutex
	vehicles  []core.Vehicle
	cancelled []string
	uploads   int
	langs     []string
}

func (s *stubOrderAPI) SearchVehicles(context.Context, core.SearchQuery) (core.SearchResult, error) {
	return core.SearchResult{Vehicles: s.vehicles}, nil
}

func (s *stubOrderAPI) GetLocations(context.Context) ([]core.Location, error) {
	return []core.Location{{ID: 7, Name: "Zurich Airport"}}, nil
}

func (s *stubOrderAPI) GetCountries(_ context.Context, lang string) ([]core.Country, error) {
	s.mu.Lock()
	s.langs = append(s.langs, lang)
	s.mu.Unlock()
	return []core.Country{{ID: "1", Name: "Switzerland", ISOCode: "CH"}}, nil
}

func (s *stubOrderAPI) CreateOrder(context.Context, core.CreateOrderRequest) (string, error) {
	return "order-1", nil
}

func (s *stubOrderAPI) UpdateOrder(context.Context, string, int) error { return nil }

func (s *stubOrderAPI) ConfirmOrder(context.Context, string, []core.Driver, core.PaymentMethod) (core.ConfirmResult, error) {
	return core.ConfirmResult{PaymentID: "pay-1"}, nil
}

func (s *stubOrderAPI) CancelOrder(_ context.Context, orderID string) error {
	s.mu.Lock()
	s.cancelled = append(s.cancelled, orderID)
	s.mu.Unlock()
	return nil
}

func (s *stubOrderAPI) UploadFile(context.Context, core.FileUpload) (core.FileUploadResult, error) {
	s.mu.Lock()
	s.uploads++
	id := s.uploads
	s.mu.Unlock()
	return core.FileUploadResult{ID: id, URL: "https://files.test/license.jpg"}, nil
}

type testServer struct {
	api     *stubOrderAPI
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := &stubOrderAPI{vehicles: []core.Vehicle{{ID: "v-1", Brand: "Skoda", Mark: "Octavia", PricePerDay: "80"}}}
	drivers := memory.NewDriverStore()

	factory := func(s *core.BookingSession) *core.Orchestrator {
		return core.NewOrchestrator(s, core.OrchestratorDeps{
			API:     api,
			Drivers: drivers,
			Logger:  log,
			Sleep:   func(context.Context, time.Duration) error { return nil },
			Options: core.DefaultOrchestratorOptions(),
		})
	}
	reg := sessions.NewRegistry(factory, time.Hour, log)

	r := chi.NewRouter()
	for _, m := range []Mountable{
		NewSessionHandler(reg, log),
		NewInsuranceHandler(core.NewQuoteService(core.StaticCatalog(core.DefaultCatalog())), log),
		NewCountryHandler(api, log),
	} {
		m.Mount(r)
	}
	return &testServer{api: api, handler: r}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionResponse {
	t.Helper()
	var out sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *testServer) createSession(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	out := decodeSession(t, rec)
	require.NotEmpty(t, out.ID)
	return out.ID
}

const searchBody = `{"date_from":"2030-06-01","time_from":"10:00","date_to":"2030-06-05","time_to":"10:00","pickup_location":"7"}`

func TestCreateSessionLoadsLocations(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	out := decodeSession(t, rec)
	assert.Equal(t, core.StepSearch, out.State.CurrentStep)
	assert.False(t, out.State.LoadingLocations)
	require.Len(t, out.State.Locations, 1)
	assert.Equal(t, "Zurich Airport", out.State.Locations[0].Name)
}

func TestGetUnknownSessionIsNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
}

func TestSearchAndSelectVehicle(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t)

	rec := s.do(t, http.MethodPost, "/sessions/"+id+"/search", searchBody)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeSession(t, rec)
	assert.Equal(t, core.StepSelectVehicle, out.State.CurrentStep)
	assert.Len(t, out.State.Vehicles, 1)

	rec = s.do(t, http.MethodPost, "/sessions/"+id+"/vehicle", `{"vehicle_id":"v-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out = decodeSession(t, rec)
	assert.Equal(t, "order-1", out.State.OrderID)
	assert.Equal(t, core.StepDriverData, out.State.CurrentStep)

	rec = s.do(t, http.MethodPost, "/sessions/"+id+"/vehicle", `{"vehicle_id":"v-404"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchValidationIsRecordedOnState(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t)

	rec := s.do(t, http.MethodPost, "/sessions/"+id+"/search", `{"date_from":"","date_to":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.MsgMissingDates, decodeSession(t, rec).State.SearchError)

	rec = s.do(t, http.MethodPost, "/sessions/"+id+"/search", `{"unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDriverEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t)

	rec := s.do(t, http.MethodPost, "/sessions/"+id+"/drivers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeSession(t, rec).State.Drivers, 2)

	rec = s.do(t, http.MethodPut, "/sessions/"+id+"/drivers/1", `{"field":"first_name","value":"Anna"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Anna", decodeSession(t, rec).State.Drivers[1].FirstName)

	rec = s.do(t, http.MethodPut, "/sessions/"+id+"/drivers/x", `{"field":"first_name","value":"Anna"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/sessions/"+id+"/drivers/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeSession(t, rec).State.Drivers, 1)
}

func TestSubmitDriversReportsFieldErrors(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t)

	rec := s.do(t, http.MethodPost, "/sessions/"+id+"/drivers/submit", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/sessions/"+id+"/search", searchBody).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/sessions/"+id+"/vehicle", `{"vehicle_id":"v-1"}`).Code)

	rec = s.do(t, http.MethodPost, "/sessions/"+id+"/drivers/submit", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Errors)
}

func TestUploadPhotos(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", "front.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/drivers/0/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeSession(t, rec)
	assert.Len(t, out.State.UploadedFiles[0], 1)
	assert.Equal(t, 1, s.api.uploads)

	rec = s.do(t, http.MethodDelete, "/sessions/"+id+"/drivers/0/photos/0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeSession(t, rec).State.UploadedFiles[0])
}

func TestUploadPhotosRequiresFiles(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "nothing attached"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/drivers/0/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatchAction(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t)

	rec := s.do(t, http.MethodPost, "/sessions/"+id+"/actions", `{"type":"SET_TERMS_ACCEPTED","payload":{"accepted":true}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeSession(t, rec).State.TermsAccepted)

	rec = s.do(t, http.MethodPost, "/sessions/"+id+"/actions", `{"type":"SET_ORDER_CONFIRMED","payload":{"confirmed":true}}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/sessions/"+id+"/actions", `{"type":"NOPE","payload":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStepNavigation(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t)

	rec := s.do(t, http.MethodPost, "/sessions/"+id+"/steps/4", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/sessions/"+id+"/steps/9/validation", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/sessions/"+id+"/steps/1/validation", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var v core.StepValidation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.False(t, v.IsValid)
	assert.NotEmpty(t, v.Errors)

	rec = s.do(t, http.MethodPost, "/sessions/"+id+"/steps/prev", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.StepSearch, decodeSession(t, rec).State.CurrentStep)
}

func TestDeleteSessionCancelsDraft(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/sessions/"+id+"/search", searchBody).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/sessions/"+id+"/vehicle", `{"vehicle_id":"v-1"}`).Code)

	rec := s.do(t, http.MethodDelete, "/sessions/"+id, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"order-1"}, s.api.cancelled)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/sessions/"+id, "").Code)
}

func TestSummary(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t)

	rec := s.do(t, http.MethodGet, "/sessions/"+id+"/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum core.BookingSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 1, sum.Drivers)
	assert.Equal(t, core.PaymentCard, sum.PaymentMethod)
}

func TestInsuranceCatalogAndQuote(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/insurance/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cat struct {
		Items []core.InsuranceOption `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cat))
	assert.Len(t, cat.Items, len(core.DefaultCatalog()))

	rec = s.do(t, http.MethodPost, "/insurance/quote", `{"birthday":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCountriesDefaultsToEnglish(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/countries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/countries?lang=de", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{"EN", "DE"}, s.api.langs)
}
