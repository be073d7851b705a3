package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
)

// gateway serves the REST routes by calling the service in-process
type gateway struct {
	svc Service
	log *slog.Logger
}

// RegisterGateway maps the REST routes onto svc
func RegisterGateway(mux *runtime.ServeMux, svc Service, logger *slog.Logger) error {
	g := &gateway{
		svc: svc,
		log: logger.With("component", "gateway"),
	}

	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodPost, "/api/v1/sessions", g.createSession},
		{http.MethodGet, "/api/v1/sessions", g.listSessions},
		{http.MethodGet, "/api/v1/sessions/{session_id}", g.getSession},
		{http.MethodDelete, "/api/v1/sessions/{session_id}", g.deleteSession},
		{http.MethodPost, "/api/v1/sessions/{session_id}/cells/{cell}", g.clickCell},
		{http.MethodPost, "/api/v1/sessions/{session_id}/steps/{step}", g.selectStep},
		{http.MethodPost, "/api/v1/sessions/{session_id}/sort", g.toggleSort},
		{http.MethodGet, "/api/v1/sessions/{session_id}/board", g.getBoard},
		{http.MethodGet, "/api/v1/sessions/{session_id}/stats", g.getStats},
	}

	for _, route := range routes {
		if err := mux.HandlePath(route.method, route.pattern, route.handler); err != nil {
			return fmt.Errorf("failed to register %s %s: %w", route.method, route.pattern, err)
		}
	}
	return nil
}

func (g *gateway) createSession(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	resp, err := g.svc.CreateSession(r.Context(), &CreateSessionRequest{})
	g.writeResponse(w, http.StatusCreated, resp, err)
}

func (g *gateway) listSessions(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	query := r.URL.Query()
	limit, err := optionalInt(query.Get("limit"), "limit")
	if err != nil {
		g.writeError(w, err)
		return
	}
	offset, err := optionalInt(query.Get("offset"), "offset")
	if err != nil {
		g.writeError(w, err)
		return
	}

	resp, err := g.svc.ListSessions(r.Context(), &ListSessionsRequest{
		Limit:  limit,
		Offset: offset,
	})
	g.writeResponse(w, http.StatusOK, resp, err)
}

func (g *gateway) getSession(w http.ResponseWriter, r *http.Request, params map[string]string) {
	resp, err := g.svc.GetSession(r.Context(), &SessionRequest{SessionID: params["session_id"]})
	g.writeResponse(w, http.StatusOK, resp, err)
}

func (g *gateway) deleteSession(w http.ResponseWriter, r *http.Request, params map[string]string) {
	resp, err := g.svc.DeleteSession(r.Context(), &SessionRequest{SessionID: params["session_id"]})
	g.writeResponse(w, http.StatusOK, resp, err)
}

func (g *gateway) clickCell(w http.ResponseWriter, r *http.Request, params map[string]string) {
	cell, err := pathInt(params, "cell")
	if err != nil {
		g.writeError(w, err)
		return
	}

	resp, err := g.svc.ClickCell(r.Context(), &ClickCellRequest{
		SessionID: params["session_id"],
		Cell:      cell,
	})
	g.writeResponse(w, http.StatusOK, resp, err)
}

func (g *gateway) selectStep(w http.ResponseWriter, r *http.Request, params map[string]string) {
	step, err := pathInt(params, "step")
	if err != nil {
		g.writeError(w, err)
		return
	}

	resp, err := g.svc.SelectStep(r.Context(), &SelectStepRequest{
		SessionID: params["session_id"],
		Step:      step,
	})
	g.writeResponse(w, http.StatusOK, resp, err)
}

func (g *gateway) toggleSort(w http.ResponseWriter, r *http.Request, params map[string]string) {
	resp, err := g.svc.ToggleSort(r.Context(), &SessionRequest{SessionID: params["session_id"]})
	g.writeResponse(w, http.StatusOK, resp, err)
}

func (g *gateway) getBoard(w http.ResponseWriter, r *http.Request, params map[string]string) {
	resp, err := g.svc.GetBoard(r.Context(), &SessionRequest{SessionID: params["session_id"]})
	g.writeResponse(w, http.StatusOK, resp, err)
}

func (g *gateway) getStats(w http.ResponseWriter, r *http.Request, params map[string]string) {
	resp, err := g.svc.GetStats(r.Context(), &SessionRequest{SessionID: params["session_id"]})
	g.writeResponse(w, http.StatusOK, resp, err)
}

func pathInt(params map[string]string, name string) (int32, error) {
	v, err := strconv.ParseInt(params[name], 10, 32)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
	return int32(v), nil
}

func optionalInt(raw, name string) (int32, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
	return int32(v), nil
}

// writeResponse encodes resp as JSON, or err as a status body. The body is
// encoded before the status line so an encoding failure can still be
// reported as an error.
func (g *gateway) writeResponse(w http.ResponseWriter, code int, resp any, err error) {
	if err != nil {
		g.writeError(w, err)
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		g.log.Error("failed to encode response", "error", err)
		g.writeError(w, status.Errorf(codes.Internal, "failed to encode response: %v", err))
		return
	}

	g.write(w, code, body)
}

// writeError encodes a gRPC status as google.rpc.Status JSON with the
// matching HTTP code
func (g *gateway) writeError(w http.ResponseWriter, err error) {
	st := status.Convert(err)

	body, mErr := protojson.Marshal(st.Proto())
	if mErr != nil {
		g.log.Error("failed to encode error status", "error", mErr)
		http.Error(w, st.Message(), http.StatusInternalServerError)
		return
	}

	g.write(w, runtime.HTTPStatusFromCode(st.Code()), body)
}

func (g *gateway) write(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(append(body, '\n')); err != nil {
		g.log.Warn("failed to write response", "status", code, "error", err)
	}
}
