package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/manishonc/car-rental/internal/core"
	"github.com/manishonc/car-rental/internal/middleware"
)

const maxPhotosPerUpload = 10

// SessionStore is the subset of the session registry the handlers need.
type SessionStore interface {
	Create() *core.Orchestrator
	Get(id string) (*core.Orchestrator, error)
	Close(ctx context.Context, id string) error
}

type sessionResponse struct {
	ID         string               `json:"id"`
	State      core.BookingState    `json:"state"`
	Validation *core.StepValidation `json:"validation,omitempty"`
}

type SessionHandler struct {
	sessions SessionStore
	log      *slog.Logger
}

func NewSessionHandler(sessions SessionStore, log *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, log: log}
}

func (h *SessionHandler) Mount(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.With(middleware.LimitRequestBody(middleware.MaxBodySize)).Post("/", h.Create)

		r.Route("/{session_id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
			r.Get("/summary", h.Summary)

			r.Group(func(r chi.Router) {
				r.Use(middleware.LimitRequestBody(middleware.MaxBodySize))
				r.Post("/actions", h.Dispatch)
				r.Post("/locations/load", h.LoadLocations)
				r.Post("/search", h.Search)
				r.Post("/vehicle", h.SelectVehicle)
				r.Post("/drivers", h.AddDriver)
				r.Post("/drivers/submit", h.SubmitDrivers)
				r.Put("/drivers/{index}", h.UpdateDriver)
				r.Delete("/drivers/{index}", h.RemoveDriver)
				r.Delete("/drivers/{index}/photos/{file}", h.RemoveUploadedFile)
				r.Post("/insurance", h.SelectInsurance)
				r.Post("/extras/complete", h.CompleteExtras)
				r.Post("/confirm", h.Confirm)
				r.Post("/steps/next", h.NextStep)
				r.Post("/steps/prev", h.PrevStep)
				r.Post("/steps/{step}", h.GoToStep)
				r.Get("/steps/{step}/validation", h.StepValidation)
				r.Post("/new-search", h.NewSearch)
				r.Post("/reset", h.Reset)
			})

			r.With(middleware.LimitRequestBody(middleware.MaxUploadSize)).
				Post("/drivers/{index}/photos", h.UploadPhotos)
		})
	})
}

func (h *SessionHandler) orchestrator(w http.ResponseWriter, r *http.Request) (*core.Orchestrator, bool) {
	orch, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return nil, false
	}
	return orch, true
}

func (h *SessionHandler) respond(w http.ResponseWriter, orch *core.Orchestrator, st core.BookingState) {
	writeJSON(w, http.StatusOK, sessionResponse{ID: orch.Session().ID, State: st})
}

// respondOrFail writes err when set, otherwise the state.
func (h *SessionHandler) respondOrFail(w http.ResponseWriter, r *http.Request, orch *core.Orchestrator, st core.BookingState, err error) {
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	h.respond(w, orch, st)
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	orch := h.sessions.Create()
	st := orch.LoadLocations(r.Context())
	writeJSON(w, http.StatusCreated, sessionResponse{ID: orch.Session().ID, State: st})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	st := orch.State()
	v := orch.Wizard().StepValidation(st.CurrentStep)
	writeJSON(w, http.StatusOK, sessionResponse{ID: orch.Session().ID, State: st, Validation: &v})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), chi.URLParam(r, "session_id")); err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, orch.Summary())
}

type actionRequest struct {
	Type    core.ActionType `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (h *SessionHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	a, err := core.DecodeAction(req.Type, req.Payload)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	st, err := orch.DispatchClient(r.Context(), a)
	h.respondOrFail(w, r, orch, st, err)
}

func (h *SessionHandler) LoadLocations(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	h.respond(w, orch, orch.LoadLocations(r.Context()))
}

func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	var in core.SearchInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	h.respond(w, orch, orch.Search(r.Context(), in))
}

type selectVehicleRequest struct {
	VehicleID string `json:"vehicle_id"`
}

func (h *SessionHandler) SelectVehicle(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	var req selectVehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	st, err := orch.SelectVehicle(r.Context(), req.VehicleID)
	h.respondOrFail(w, r, orch, st, err)
}

func (h *SessionHandler) AddDriver(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	h.respond(w, orch, orch.AddDriver(r.Context()))
}

type updateDriverRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *SessionHandler) UpdateDriver(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	index, err := intParam(r, "index")
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	var req updateDriverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	st, err := orch.UpdateDriver(r.Context(), index, req.Field, req.Value)
	h.respondOrFail(w, r, orch, st, err)
}

func (h *SessionHandler) RemoveDriver(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	index, err := intParam(r, "index")
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	st, err := orch.RemoveDriver(r.Context(), index)
	h.respondOrFail(w, r, orch, st, err)
}

func (h *SessionHandler) SubmitDrivers(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	st, err := orch.SubmitDrivers(r.Context())
	h.respondOrFail(w, r, orch, st, err)
}

func (h *SessionHandler) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	index, err := intParam(r, "index")
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	files, err := readUploads(r)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	st, err := orch.UploadLicensePhotos(r.Context(), index, files)
	h.respondOrFail(w, r, orch, st, err)
}

// readUploads collects every part named "files" from a multipart body.
func readUploads(r *http.Request) ([]core.FileUpload, error) {
	if err := r.ParseMultipartForm(middleware.MaxUploadSize); err != nil {
		return nil, fmt.Errorf("%w: invalid multipart body: %v", core.ErrValidation, err)
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", core.ErrValidation)
	}
	if len(headers) > maxPhotosPerUpload {
		return nil, fmt.Errorf("%w: at most %d files per upload", core.ErrValidation, maxPhotosPerUpload)
	}

	out := make([]core.FileUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
		}
		out = append(out, core.FileUpload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return out, nil
}

func (h *SessionHandler) RemoveUploadedFile(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	index, err := intParam(r, "index")
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	file, err := intParam(r, "file")
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	st, err := orch.RemoveUploadedFile(r.Context(), index, file)
	h.respondOrFail(w, r, orch, st, err)
}

type selectInsuranceRequest struct {
	InsuranceID int `json:"insurance_id"`
}

func (h *SessionHandler) SelectInsurance(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	var req selectInsuranceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	st, err := orch.SelectInsurance(r.Context(), req.InsuranceID)
	h.respondOrFail(w, r, orch, st, err)
}

func (h *SessionHandler) CompleteExtras(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	st, err := orch.CompleteExtras(r.Context())
	h.respondOrFail(w, r, orch, st, err)
}

func (h *SessionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	h.respond(w, orch, orch.Confirm(r.Context()))
}

func (h *SessionHandler) NextStep(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	st, err := orch.Wizard().NextStep()
	h.respondOrFail(w, r, orch, st, err)
}

func (h *SessionHandler) PrevStep(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	h.respond(w, orch, orch.Wizard().PrevStep())
}

func stepParam(r *http.Request) (core.Step, error) {
	n, err := intParam(r, "step")
	if err != nil {
		return 0, err
	}
	if n < int(core.FirstStep) || n > int(core.LastStep) {
		return 0, fmt.Errorf("%w: step must be between %d and %d", core.ErrValidation, core.FirstStep, core.LastStep)
	}
	return core.Step(n), nil
}

func (h *SessionHandler) GoToStep(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	n, err := stepParam(r)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	st, err := orch.Wizard().GoToStep(n)
	h.respondOrFail(w, r, orch, st, err)
}

func (h *SessionHandler) StepValidation(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	n, err := stepParam(r)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, orch.Wizard().StepValidation(n))
}

func (h *SessionHandler) NewSearch(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	h.respond(w, orch, orch.StartNewSearch(r.Context()))
}

func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestrator(w, r)
	if !ok {
		return
	}
	h.respond(w, orch, orch.ResetBooking(r.Context()))
}
