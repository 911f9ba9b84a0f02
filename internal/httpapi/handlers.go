package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"counterstrike/docs/schema/openapi"
	"counterstrike/internal/archive"
	blobcore "counterstrike/internal/blob/core"
	"counterstrike/internal/core"
)

// maxBodyBytes bounds invocation request bodies.
const maxBodyBytes = 1 << 20

// App holds the handler dependencies.
type App struct {
	Dispatcher *core.Dispatcher
	// Exporter is optional; snapshot routes answer 503 when nil.
	Exporter *archive.Exporter
	Logger   core.Logger
}

// InvokeRequest is the body of POST /invoke.
type InvokeRequest struct {
	Function string   `json:"function"`
	Args     []string `json:"args"`
}

// Envelope mirrors core.Response on the wire.
type Envelope struct {
	Status    int32           `json:"status"`
	Message   string          `json:"message,omitempty"`
	Code      string          `json:"code,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

func (a *App) envelope(r *http.Request, resp core.Response) (int, Envelope) {
	env := Envelope{
		Status:    resp.Status,
		Message:   resp.Message,
		Code:      string(resp.Code),
		RequestID: RequestIDFromContext(r.Context()),
	}
	if len(resp.Payload) > 0 {
		env.Payload = json.RawMessage(resp.Payload)
	}
	if resp.OK() {
		return http.StatusOK, env
	}
	return StatusForCode(resp.Code), env
}

func (a *App) invokeHandler(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return
	}
	var req InvokeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Function == "" {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "function is required")
		return
	}
	resp := a.Dispatcher.Invoke(r.Context(), req.Function, req.Args)
	status, env := a.envelope(r, resp)
	if !resp.OK() {
		a.Logger.Warn("invoke_failed", "function", req.Function, "code", env.Code, "message", env.Message, "request_id", env.RequestID)
	}
	writeJSON(w, status, env)
}

func (a *App) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	status, env := a.envelope(r, a.Dispatcher.Invoke(r.Context(), string(core.CommandListProducts), nil))
	writeJSON(w, status, env)
}

func (a *App) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	status, env := a.envelope(r, a.Dispatcher.Invoke(r.Context(), string(core.CommandGetProduct), []string{id}))
	writeJSON(w, status, env)
}

func (a *App) exportHandler(w http.ResponseWriter, r *http.Request) {
	if a.Exporter == nil {
		WriteJSONError(w, http.StatusServiceUnavailable, "archive_disabled", "")
		return
	}
	artifact, err := a.Exporter.Export(r.Context())
	if err != nil {
		a.Logger.Error("snapshot_export_failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		WriteJSONError(w, http.StatusInternalServerError, "export_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, artifact)
}

func (a *App) listSnapshotsHandler(w http.ResponseWriter, r *http.Request) {
	if a.Exporter == nil {
		WriteJSONError(w, http.StatusServiceUnavailable, "archive_disabled", "")
		return
	}
	artifacts, err := a.Exporter.List(r.Context())
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, artifacts)
}

func (a *App) latestSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	if a.Exporter == nil {
		WriteJSONError(w, http.StatusServiceUnavailable, "archive_disabled", "")
		return
	}
	snap, _, err := a.Exporter.Latest(r.Context())
	if errors.Is(err, blobcore.ErrNotFound) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "no snapshots")
		return
	}
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "load_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *App) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func openAPIHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openapi.Spec())
}
