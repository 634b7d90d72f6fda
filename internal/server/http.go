package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/relay/internal/model"
	"github.com/alfredjeanlab/relay/internal/store"
)

// maxBodyBytes bounds request bodies. File-transfer commands carry the file
// inline, so the limit is generous.
const maxBodyBytes = 64 << 20

// NewHTTPHandler returns an http.Handler with all routes registered.
func (s *RelayServer) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /report", s.handleReport)
	mux.HandleFunc("GET /get_reports", s.handleGetReports)
	mux.HandleFunc("GET /command/{agent_id}", s.handleGetCommand)
	mux.HandleFunc("POST /send_command", s.handleSendCommand)
	mux.HandleFunc("POST /send_command_to_all", s.handleSendCommandToAll)
	mux.HandleFunc("GET /clients", s.handleListClients)
	mux.HandleFunc("DELETE /clients/{agent_id}", s.handleRemoveClient)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /events", s.handleListEvents)
	mux.HandleFunc("GET /events/stream", s.handleEventStream)
	return mux
}

// handleReport handles POST /report.
func (s *RelayServer) handleReport(w http.ResponseWriter, r *http.Request) {
	var req model.ReportRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.Report(r.Context(), &req)
	writeResult(w, resp, err)
}

// handleGetReports handles GET /get_reports.
func (s *RelayServer) handleGetReports(w http.ResponseWriter, r *http.Request) {
	resp, err := s.GetReports(r.Context(), &model.Empty{})
	if err != nil {
		writeResult(w, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, resp.Reports)
}

// handleGetCommand handles GET /command/{agent_id}.
func (s *RelayServer) handleGetCommand(w http.ResponseWriter, r *http.Request) {
	resp, err := s.GetCommand(r.Context(), &model.AgentRef{AgentID: r.PathValue("agent_id")})
	writeResult(w, resp, err)
}

// handleSendCommand handles POST /send_command.
func (s *RelayServer) handleSendCommand(w http.ResponseWriter, r *http.Request) {
	var req model.SendCommandRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.SendCommand(r.Context(), &req)
	writeResult(w, resp, err)
}

// handleSendCommandToAll handles POST /send_command_to_all.
func (s *RelayServer) handleSendCommandToAll(w http.ResponseWriter, r *http.Request) {
	var req model.BroadcastRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.SendCommandToAll(r.Context(), &req)
	writeResult(w, resp, err)
}

// handleListClients handles GET /clients.
func (s *RelayServer) handleListClients(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ListClients(r.Context(), &model.Empty{})
	if err != nil {
		writeResult(w, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, resp.Clients)
}

// handleRemoveClient handles DELETE /clients/{agent_id}.
func (s *RelayServer) handleRemoveClient(w http.ResponseWriter, r *http.Request) {
	resp, err := s.RemoveClient(r.Context(), &model.AgentRef{AgentID: r.PathValue("agent_id")})
	writeResult(w, resp, err)
}

// handleHealth handles GET /health.
func (s *RelayServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp, err := s.Health(r.Context(), &model.Empty{})
	writeResult(w, resp, err)
}

// handleListEvents handles GET /events, reading back the audit log.
func (s *RelayServer) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "audit log is not configured")
		return
	}

	q := r.URL.Query()
	filter := store.EventFilter{
		AgentID: q.Get("agent_id"),
		Topic:   q.Get("topic"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}

	evts, err := s.store.ListEvents(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, evts)
}

// decodeBody decodes a JSON request body into v. An empty body leaves v at
// its zero value; only a body that is not JSON at all is an error.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return errors.New("failed to read request body")
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		// Well-formed JSON of the wrong shape keeps whatever fields did
		// decode; the rest stay defaulted.
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

// writeResult writes resp as JSON, or maps err to an HTTP error.
func writeResult(w http.ResponseWriter, resp any, err error) {
	if err != nil {
		writeError(w, httpStatus(err), status.Convert(err).Message())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// httpStatus maps a gRPC status error to the matching HTTP status.
func httpStatus(err error) int {
	switch status.Code(err) {
	case codes.NotFound:
		return http.StatusNotFound
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
