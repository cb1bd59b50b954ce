package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/aditus-access/aditus/server/internal/aditus/service"
	"github.com/aditus-access/aditus/server/internal/aditus/store"
	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

type Dependencies struct {
	Logger          zerolog.Logger
	Addr            string
	Orchestrator    *service.Orchestrator
	Occupancy       *service.OccupancyManager
	Zones           store.ZoneStore
	AccessLog       store.AccessLogStore
	CredentialAdmin *service.CredentialAdmin
}

type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
	mux        *http.ServeMux
	validate   *validator.Validate

	orchestrator *service.Orchestrator
	occupancy    *service.OccupancyManager
	zones        store.ZoneStore
	accessLog    store.AccessLogStore
	credentials  *service.CredentialAdmin
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:       d.Logger,
		mux:          mux,
		validate:     validator.New(),
		orchestrator: d.Orchestrator,
		occupancy:    d.Occupancy,
		zones:        d.Zones,
		accessLog:    d.AccessLog,
		credentials:  d.CredentialAdmin,
	}

	mux.HandleFunc("POST /v1/access_event", s.handleAccessEvent)
	mux.HandleFunc("GET /v1/zones/occupancy", s.handleAllOccupancy)
	mux.HandleFunc("GET /v1/zones/{zone_id}/occupancy", s.handleZoneOccupancy)
	mux.HandleFunc("GET /v1/members/{member_id}/location", s.handleMemberLocation)
	mux.HandleFunc("GET /v1/access_log", s.handleAccessLog)
	mux.HandleFunc("POST /v1/credentials/{credential_id}/status", s.handleCredentialStatus)

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleAccessEvent(w http.ResponseWriter, r *http.Request) {
	var event types.AccessEvent
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if err := s.validate.Struct(event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_event", err.Error())
		return
	}

	decision, err := s.orchestrator.Decide(r.Context(), event)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEventID),
			errors.Is(err, service.ErrInvalidDeviceID),
			errors.Is(err, service.ErrInvalidCredential):
			writeError(w, http.StatusBadRequest, "invalid_event", err.Error())
		default:
			s.logger.Error().Err(err).Msg("access_event error")
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleAllOccupancy(w http.ResponseWriter, r *http.Request) {
	zones, err := s.zones.ListZones(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("zone list error")
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	// Zones with no traffic yet still report a zero snapshot.
	out := make([]types.OccupancySnapshot, 0, len(zones))
	for _, z := range zones {
		snap, _ := s.occupancy.Snapshot(z.ID)
		out = append(out, snap)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleZoneOccupancy(w http.ResponseWriter, r *http.Request) {
	zoneID := r.PathValue("zone_id")

	if _, found, err := s.zones.GetZone(r.Context(), zoneID); err != nil {
		s.logger.Error().Err(err).Msg("zone lookup error")
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	} else if !found {
		writeError(w, http.StatusNotFound, "unknown_zone", "no such zone")
		return
	}

	snap, _ := s.occupancy.Snapshot(zoneID)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleMemberLocation(w http.ResponseWriter, r *http.Request) {
	memberID := r.PathValue("member_id")
	loc, ok := s.occupancy.Location(memberID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_present", "member is not inside any zone")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleAccessLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := types.AccessLogFilter{
		TenantID: q.Get("tenant_id"),
		DeviceID: q.Get("device_id"),
		ZoneID:   q.Get("zone_id"),
		MemberID: q.Get("member_id"),
		Result:   types.Result(q.Get("result")),
	}
	if t, ok := parseQueryTime(q.Get("from")); ok {
		filter.From = &t
	}
	if t, ok := parseQueryTime(q.Get("to")); ok {
		filter.To = &t
	}
	filter.Limit = parseQueryInt(q.Get("limit"), 100)
	filter.Offset = parseQueryInt(q.Get("offset"), 0)

	entries, err := s.accessLog.List(r.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("access_log query error")
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	if entries == nil {
		entries = []types.AccessLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type credentialStatusRequest struct {
	Transition string `json:"transition" validate:"required,oneof=suspend reactivate revoke report_lost"`
}

func (s *Server) handleCredentialStatus(w http.ResponseWriter, r *http.Request) {
	credentialID := r.PathValue("credential_id")

	var req credentialStatusRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_transition", err.Error())
		return
	}

	if err := s.credentials.Apply(r.Context(), credentialID, req.Transition); err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownStatus):
			writeError(w, http.StatusBadRequest, "invalid_transition", err.Error())
		case errors.Is(err, store.ErrCredentialNotFound):
			writeError(w, http.StatusNotFound, "unknown_credential", "no such credential")
		default:
			writeError(w, http.StatusConflict, "transition_rejected", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func parseQueryTime(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func parseQueryInt(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}
