package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"sovdscope/internal/console"
	"sovdscope/internal/profiles"
	"sovdscope/internal/sovd"
	"sovdscope/internal/system"
	"sovdscope/internal/version"
)

// resourceRef identifies an entity's resource collection in request bodies.
type resourceRef struct {
	Collection sovd.Collection `json:"collection"`
	Owner      string          `json:"owner"`
}

func (ref resourceRef) validate() error {
	if ref.Collection == "" || ref.Owner == "" {
		return fmt.Errorf("collection and owner are required")
	}
	return nil
}

func (s *Server) handleConnectionState(w http.ResponseWriter, r *http.Request) {
	versionInfo, capabilities := s.console.ServerInfo()
	rememberedURL, rememberedBase := s.console.RememberedServer()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connected":    s.console.Connected(),
		"serverUrl":    s.console.ServerURL(),
		"version":      versionInfo,
		"capabilities": capabilities,
		"remembered": map[string]string{
			"url":      rememberedURL,
			"basePath": rememberedBase,
		},
	})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL      string `json:"url"`
		BasePath string `json:"basePath"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("url is required"))
		return
	}

	if err := s.console.Connect(r.Context(), req.URL, req.BasePath); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.handleConnectionState(w, r)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.console.Disconnect()
	writeJSON(w, http.StatusOK, map[string]bool{"connected": false})
}

func (s *Server) handleConnectionHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": []interface{}{}})
		return
	}
	entries, err := s.store.History(10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": entries})
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"roots": s.console.Tree()})
}

func (s *Server) handleLoadChildren(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Failures degrade to a notification; the tree is returned either way.
	s.console.LoadChildren(r.Context(), req.Path)
	writeJSON(w, http.StatusOK, map[string]interface{}{"node": s.console.Node(req.Path)})
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path     string `json:"path"`
		Expanded bool   `json:"expanded"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.console.SetExpanded(req.Path, req.Expanded)
	writeJSON(w, http.StatusOK, map[string]interface{}{"node": s.console.Node(req.Path)})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.console.RefreshDiscovery(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.handleTree(w, r)
}

func detailEnvelope(path string, detail console.Detail) map[string]interface{} {
	envelope := map[string]interface{}{"path": path}
	if detail != nil {
		envelope["kind"] = detail.Kind()
		envelope["detail"] = detail
	}
	return envelope
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	path, detail := s.console.Selected()
	writeJSON(w, http.StatusOK, detailEnvelope(path, detail))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("path is required"))
		return
	}

	detail, err := s.console.Select(r.Context(), req.Path)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, detailEnvelope(req.Path, detail))
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req struct {
		resourceRef
		Operation  string                 `json:"operation"`
		Parameters map[string]interface{} `json:"parameters"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Operation == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("operation is required"))
		return
	}

	exec, err := s.console.Invoke(r.Context(), req.Collection, req.Owner, req.Operation, req.Parameters)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, exec)
}

func (s *Server) handleExecutions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": s.console.Executions()})
}

func (s *Server) handleRefreshExecution(w http.ResponseWriter, r *http.Request) {
	exec, err := s.console.RefreshExecution(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

func (s *Server) handleCancelExecution(w http.ResponseWriter, r *http.Request) {
	exec, err := s.console.CancelExecution(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

func (s *Server) handleAutoRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.console.SetAutoRefresh(req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

func resourceQuery(r *http.Request) (resourceRef, error) {
	ref := resourceRef{
		Collection: sovd.Collection(r.URL.Query().Get("collection")),
		Owner:      r.URL.Query().Get("owner"),
	}
	return ref, ref.validate()
}

func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
	ref, err := resourceQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	params, err := s.console.Parameters(r.Context(), ref.Collection, ref.Owner)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": params})
}

func (s *Server) handleSetParameter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		resourceRef
		Name  string      `json:"name"`
		Value interface{} `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}

	if err := s.console.SetParameter(r.Context(), req.Collection, req.Owner, req.Name, req.Value); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleResetParameters(w http.ResponseWriter, r *http.Request) {
	var req struct {
		resourceRef
		Name string `json:"name"` // empty resets every parameter
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var err error
	if req.Name == "" {
		err = s.console.ResetAllParameters(r.Context(), req.Collection, req.Owner)
	} else {
		err = s.console.ResetParameter(r.Context(), req.Collection, req.Owner, req.Name)
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleFaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": s.console.Faults()})
}

func (s *Server) handleClearFaults(w http.ResponseWriter, r *http.Request) {
	var req struct {
		resourceRef
		Code string `json:"code"` // empty clears every fault of the owner
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var err error
	if req.Code == "" {
		err = s.console.ClearAllFaults(r.Context(), req.Collection, req.Owner)
	} else {
		err = s.console.ClearFault(r.Context(), req.Collection, req.Owner, req.Code)
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": s.console.Faults()})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		resourceRef
		Topic   string                 `json:"topic"`
		Message map[string]interface{} `json:"message"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("topic is required"))
		return
	}

	if err := s.console.PublishData(r.Context(), req.Collection, req.Owner, req.Topic, req.Message); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleVitals(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.vitals.Get("vitals"); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	vitals, err := system.GetVitals()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	payload := map[string]interface{}{
		"cpuPercent":  vitals.CPUPercent,
		"memPercent":  vitals.MemPercent,
		"diskPercent": vitals.DiskPercent,
	}
	s.vitals.Set("vitals", payload)
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSystemHistory(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": []interface{}{}})
		return
	}

	window := 5 * time.Minute
	if raw := r.URL.Query().Get("seconds"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid seconds value %q", raw))
			return
		}
		window = time.Duration(seconds) * time.Second
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": s.metrics.Window(window)})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	list, err := profiles.Load(s.cfg.ProfilesPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []profiles.Profile{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": list})
}
