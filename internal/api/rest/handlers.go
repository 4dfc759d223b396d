// Package rest provides the HTTP control and status API.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/talitunes/internal/app/library"
	"github.com/osa030/talitunes/internal/app/playback"
	"github.com/osa030/talitunes/internal/domain/track"
)

// Player is the subset of the playback controller driven over HTTP.
type Player interface {
	PlayIndex(index int) error
	TogglePlay() error
	Stop() error
	Next() error
	Prev() error
	Seek(pos time.Duration) error
	SetVolume(v int) int
	AddFiles(paths []string) int
	ClearPlaylist()
	Refresh() error
	GetView() playback.View
	GetTracks() []track.Track
	GetTotalDuration() time.Duration
}

// Expander resolves user supplied paths into audio files.
type Expander interface {
	Expand(ctx context.Context, args []string) (library.ScanResult, error)
}

// Handlers holds the HTTP handlers.
type Handlers struct {
	player   Player
	expander Expander
	started  time.Time
}

// NewHandlers creates the handlers. expander may be nil, in which case paths are added as given.
func NewHandlers(player Player, expander Expander) *Handlers {
	return &Handlers{
		player:   player,
		expander: expander,
		started:  time.Now(),
	}
}

// HealthResponse contains the health check response.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
	State  string `json:"state"`
}

// TrackResponse describes a playlist entry.
type TrackResponse struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Current  bool   `json:"current"`
	Duration string `json:"duration,omitempty"`
}

// PlaylistResponse contains the playlist and the current index.
type PlaylistResponse struct {
	Current       int             `json:"current"`
	Tracks        []TrackResponse `json:"tracks"`
	TotalDuration string          `json:"total_duration"` // Sum of the durations known so far
}

// AddRequest is the body of POST /api/playlist.
type AddRequest struct {
	Paths []string `json:"paths"`
}

// AddResponse reports the outcome of POST /api/playlist.
type AddResponse struct {
	Added    int                 `json:"added"`
	Rejected []library.Rejection `json:"rejected,omitempty"`
	View     playback.View       `json:"view"`
}

// VolumeRequest is the body of POST /api/volume.
type VolumeRequest struct {
	Volume int `json:"volume"`
}

// SeekRequest is the body of POST /api/seek. Position accepts "MM:SS" or seconds.
type SeekRequest struct {
	Position string `json:"position"`
}

// Health returns the service health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	view := h.player.GetView()
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, HealthResponse{
		Status: "healthy",
		Uptime: time.Since(h.started).Round(time.Second).String(),
		State:  view.StateName,
	})
}

// Status returns the UI projection.
func (h *Handlers) Status(w http.ResponseWriter, _ *http.Request) {
	writeView(w, h.player.GetView())
}

// GetPlaylist returns the playlist.
func (h *Handlers) GetPlaylist(w http.ResponseWriter, _ *http.Request) {
	view := h.player.GetView()
	tracks := h.player.GetTracks()

	resp := PlaylistResponse{
		Current:       view.Index,
		Tracks:        make([]TrackResponse, len(tracks)),
		TotalDuration: playback.FormatDuration(h.player.GetTotalDuration()),
	}
	for i, t := range tracks {
		resp.Tracks[i] = TrackResponse{
			Index:   i,
			Name:    t.Name,
			Path:    t.Path,
			Current: i == view.Index,
		}
		if t.HasDuration() {
			resp.Tracks[i].Duration = playback.FormatDuration(t.Duration)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

// AddToPlaylist expands the requested paths and appends them.
func (h *Handlers) AddToPlaylist(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Paths) == 0 {
		writeJSONError(w, "paths is required", http.StatusBadRequest)
		return
	}

	paths := req.Paths
	var rejected []library.Rejection
	if h.expander != nil {
		result, err := h.expander.Expand(r.Context(), req.Paths)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		paths = result.Paths
		rejected = result.Rejected
	}

	added := h.player.AddFiles(paths)
	zlog.Debug().Msgf("rest: added %d tracks, rejected %d", added, len(rejected))

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AddResponse{
		Added:    added,
		Rejected: rejected,
		View:     h.player.GetView(),
	})
}

// ClearPlaylist clears the playlist. The caller must pass confirm=true.
func (h *Handlers) ClearPlaylist(w http.ResponseWriter, r *http.Request) {
	if ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !ok {
		writeJSONError(w, "clearing the playlist requires confirm=true", http.StatusPreconditionRequired)
		return
	}
	h.player.ClearPlaylist()
	writeView(w, h.player.GetView())
}

// Play plays the track at the index in the path.
func (h *Handlers) Play(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeJSONError(w, "index must be an integer", http.StatusBadRequest)
		return
	}
	h.command(w, func() error { return h.player.PlayIndex(index) })
}

// Toggle toggles play/pause.
func (h *Handlers) Toggle(w http.ResponseWriter, _ *http.Request) {
	h.command(w, h.player.TogglePlay)
}

// Stop stops playback.
func (h *Handlers) Stop(w http.ResponseWriter, _ *http.Request) {
	h.command(w, h.player.Stop)
}

// Next plays the next track.
func (h *Handlers) Next(w http.ResponseWriter, _ *http.Request) {
	h.command(w, h.player.Next)
}

// Prev plays the previous track.
func (h *Handlers) Prev(w http.ResponseWriter, _ *http.Request) {
	h.command(w, h.player.Prev)
}

// Refresh resets the player.
func (h *Handlers) Refresh(w http.ResponseWriter, _ *http.Request) {
	h.command(w, h.player.Refresh)
}

// Volume sets the volume.
func (h *Handlers) Volume(w http.ResponseWriter, r *http.Request) {
	var req VolumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.player.SetVolume(req.Volume)
	writeView(w, h.player.GetView())
}

// Seek moves the playback position.
func (h *Handlers) Seek(w http.ResponseWriter, r *http.Request) {
	var req SeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	pos, err := playback.ParsePosition(req.Position)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.command(w, func() error { return h.player.Seek(pos) })
}

// command runs fn and writes either the view or the mapped error.
func (h *Handlers) command(w http.ResponseWriter, fn func() error) {
	if err := fn(); err != nil {
		writeJSONError(w, err.Error(), statusFor(err))
		return
	}
	writeView(w, h.player.GetView())
}

// statusFor maps controller errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, playback.ErrInvalidIndex):
		return http.StatusBadRequest
	case errors.Is(err, playback.ErrEngineUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, playback.ErrLoad):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
