package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anicoll/winix-integration/internal/pkg/coordinator"
	"github.com/anicoll/winix-integration/internal/pkg/device"
	"github.com/anicoll/winix-integration/internal/pkg/model"
	"github.com/anicoll/winix-integration/internal/pkg/winix"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var errNoHistory = errors.New("history store not configured")

type manager interface {
	Sessions() []device.Session
	Lookup(key string) (device.Session, bool)
	Dispatch(ctx context.Context, service string, deviceIDs []string, params coordinator.Params) error
}

type historyStore interface {
	GetHistory(ctx context.Context, identifier, attribute string, from, to time.Time) (model.Records, error)
	GetLatest(ctx context.Context) (model.Records, error)
}

type server struct {
	manager manager
	history historyStore
	metrics http.Handler
	logger  *zap.Logger
}

// New builds the control API. history and metrics may be nil.
func New(m manager, history historyStore, metrics http.Handler) *server {
	return &server{manager: m, history: history, metrics: metrics, logger: zap.L()}
}

// Handler returns the routes wrapped in middlewares, outermost first.
func (s *server) Handler(middlewares ...func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	mux.HandleFunc("GET /devices", s.listDevices)
	mux.HandleFunc("GET /devices/{id}", s.getDevice)
	mux.HandleFunc("GET /devices/{id}/history", s.getHistory)
	mux.HandleFunc("GET /history/latest", s.getLatest)
	mux.HandleFunc("POST /devices/{id}/services/{service}", s.callDeviceService)
	mux.HandleFunc("POST /services/{service}", s.callService)

	var h http.Handler = mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

type deviceView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Slug      string      `json:"slug"`
	MAC       string      `json:"mac"`
	Model     string      `json:"model"`
	IsOn      bool        `json:"is_on"`
	Pending   bool        `json:"pending"`
	State     winix.State `json:"state"`
	ModeLabel string      `json:"mode_label,omitempty"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
	Location  string      `json:"location_code,omitempty"`
}

func viewOf(s device.Session) deviceView {
	stub := s.Stub()
	state := s.State()
	view := deviceView{
		ID:       stub.ID,
		Name:     stub.Name(),
		Slug:     stub.Slug(),
		MAC:      stub.MAC,
		Model:    stub.Model,
		IsOn:     s.IsOn(),
		Pending:  s.Pending(),
		State:    state,
		Location: stub.LocationCode,
	}
	if mode, ok := state.String(winix.AttrMode); ok {
		view.ModeLabel = device.ModeLabels[mode]
	}
	if updated := s.UpdatedAt(); !updated.IsZero() {
		view.UpdatedAt = &updated
	}
	return view
}

type errorBody struct {
	Error string `json:"error"`
}

type serviceRequest struct {
	EntityIDs []string `json:"entity_ids"`
	coordinator.Params
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) listDevices(w http.ResponseWriter, _ *http.Request) {
	sessions := s.manager.Sessions()
	out := make([]deviceView, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, viewOf(session))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) lookup(w http.ResponseWriter, r *http.Request) (device.Session, bool) {
	id := r.PathValue("id")
	session, ok := s.manager.Lookup(id)
	if !ok {
		s.handleError(w, fmt.Errorf("%q: %w", id, coordinator.ErrUnknownDevice))
	}
	return session, ok
}

func (s *server) getDevice(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(session))
}

func (s *server) getHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.handleError(w, errNoHistory)
		return
	}
	session, ok := s.lookup(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	attribute := q.Get("attribute")
	if attribute == "" {
		s.handleError(w, fmt.Errorf("attribute is required: %w", coordinator.ErrInvalidArgument))
		return
	}
	from, err := parseTime(q.Get("from"))
	if err != nil {
		s.handleError(w, err)
		return
	}
	to, err := parseTime(q.Get("to"))
	if err != nil {
		s.handleError(w, err)
		return
	}

	records, err := s.history.GetHistory(r.Context(), session.Stub().Slug(), attribute, from, to)
	if err != nil {
		s.handleError(w, err)
		return
	}
	if records == nil {
		records = model.Records{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *server) getLatest(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.handleError(w, errNoHistory)
		return
	}
	records, err := s.history.GetLatest(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}
	if records == nil {
		records = model.Records{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *server) callDeviceService(w http.ResponseWriter, r *http.Request) {
	var params coordinator.Params
	if err := decodeBody(r, &params); err != nil {
		s.handleError(w, err)
		return
	}
	s.dispatch(w, r, []string{r.PathValue("id")}, params)
}

func (s *server) callService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := decodeBody(r, &req); err != nil {
		s.handleError(w, err)
		return
	}
	s.dispatch(w, r, req.EntityIDs, req.Params)
}

func (s *server) dispatch(w http.ResponseWriter, r *http.Request, ids []string, params coordinator.Params) {
	service := r.PathValue("service")
	if err := s.manager.Dispatch(r.Context(), service, ids, params); err != nil {
		s.handleError(w, err)
		return
	}
	s.logger.Info("service called", zap.String("service", service), zap.Strings("devices", ids))

	targets := ids
	if len(targets) == 0 {
		writeJSON(w, http.StatusOK, lo.Map(s.manager.Sessions(), func(session device.Session, _ int) deviceView {
			return viewOf(session)
		}))
		return
	}
	out := make([]deviceView, 0, len(targets))
	for _, id := range lo.Uniq(targets) {
		if session, ok := s.manager.Lookup(id); ok {
			out = append(out, viewOf(session))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode body: %w", errors.Join(coordinator.ErrInvalidArgument, err))
	}
	return nil
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("time %q: %w", value, coordinator.ErrInvalidArgument)
	}
	return t, nil
}

func statusFor(err error) int {
	var httpErr *winix.HTTPError
	switch {
	case errors.Is(err, coordinator.ErrUnknownDevice), errors.Is(err, coordinator.ErrUnknownService):
		return http.StatusNotFound
	case errors.Is(err, coordinator.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, errNoHistory):
		return http.StatusNotImplemented
	case errors.As(err, &httpErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) handleError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
