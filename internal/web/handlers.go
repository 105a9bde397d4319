package web

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/JonMunkholm/mtsload/internal/core"
)

// StationInfo describes one registered station and its id range.
type StationInfo struct {
	Key     string       `json:"key"`
	Label   string       `json:"label"`
	Folders []string     `json:"folders"`
	IDs     core.IDRange `json:"ids"`
}

// FileState is the resume position of one tracked file.
type FileState struct {
	Path    string `json:"path"`
	Resume  int    `json:"resume"`
	Station string `json:"station,omitempty"`
}

// StateResponse is the body of GET /api/state.
type StateResponse struct {
	Files     []FileState           `json:"files"`
	NextRunID int64                 `json:"next_run_id"`
	LastSaved *time.Time            `json:"last_saved,omitempty"`
	Run       core.RunLimiterStatus `json:"run"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	ranges := core.Ranges()
	var out []StationInfo
	for _, st := range core.All() {
		out = append(out, StationInfo{
			Key:     st.Key,
			Label:   st.Label,
			Folders: st.Folders,
			IDs:     ranges[st.Key],
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	rs := s.service.State()

	resp := StateResponse{
		Files:     []FileState{},
		NextRunID: rs.NextRunID(),
		Run:       s.service.Limiter().Status(),
	}
	if t := rs.LastSaved(); !t.IsZero() {
		resp.LastSaved = &t
	}
	for path, idx := range rs.Resume() {
		fs := FileState{Path: path, Resume: idx}
		if res := core.ResolvePath(path); res.OK {
			fs.Station = res.Station.Key
		}
		resp.Files = append(resp.Files, fs)
	}
	sort.Slice(resp.Files, func(i, j int) bool { return resp.Files[i].Path < resp.Files[j].Path })

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	last := s.service.LastSummary()
	if last == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no run has completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	// The run outlives the request.
	ctx := core.ContextWithTrigger(context.WithoutCancel(r.Context()), core.TriggerHTTP)

	if err := s.service.RunAsync(ctx); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrRunInProgress) {
			status = http.StatusConflict
		}
		respondError(w, r, err, status)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
