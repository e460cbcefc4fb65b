package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eisenbruch/projector/internal/capture"
	"github.com/eisenbruch/projector/internal/config"
	"github.com/eisenbruch/projector/internal/dto"
	"github.com/eisenbruch/projector/internal/events"
	"github.com/eisenbruch/projector/internal/netutil"
	"github.com/eisenbruch/projector/web"
)

// contentTypes maps segment-directory file extensions to media types.
// Anything unknown is served as a generic binary.
var contentTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".ts":   "video/mp2t",
	".html": "text/html",
	".js":   "application/javascript",
}

type Handler struct {
	supervisor *capture.Supervisor
	sources    capture.SourceLister
	hub        *events.Hub
	config     *config.Config
	localIP    func() string
}

// Constructor for Handler
func NewHandler(supervisor *capture.Supervisor, sources capture.SourceLister, hub *events.Hub, cfg *config.Config) *Handler {
	return &Handler{
		supervisor: supervisor,
		sources:    sources,
		hub:        hub,
		config:     cfg,
		localIP:    netutil.LocalIP,
	}
}

func (handler *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := dto.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}
	handler.respondJSON(w, http.StatusOK, response)
}

// Index serves the attendee-facing page: the viewer while a session is
// active, a placeholder otherwise.
func (handler *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		handler.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	page := web.Placeholder
	if handler.supervisor.Running() {
		page = web.Viewer
	}
	handler.servePage(w, page)
}

// ControlPage serves the presenter's control panel.
func (handler *Handler) ControlPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		handler.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	handler.servePage(w, web.Control)
}

// ServeSegment serves one file from the segment directory. The directory is
// a flat namespace: any name with traversal or separator characters is
// rejected before the filesystem is touched.
func (handler *Handler) ServeSegment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		handler.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	filename := strings.TrimPrefix(r.URL.Path, "/hls/")
	if filename == "" || strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	path := filepath.Join(handler.config.HLSDir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	ext := filepath.Ext(filename)
	contentType, ok := contentTypes[ext]
	if !ok {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	// Segments are immutable once written; the playlist rotates and must
	// never be cached.
	if ext == ".ts" {
		w.Header().Set("Cache-Control", "public, max-age=60")
	} else {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	}
	http.ServeFile(w, r, path)
}

// Status reports whether a session is active and where viewers can connect.
func (handler *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		handler.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ip := handler.localIP()
	response := dto.StatusResponse{
		Running: handler.supervisor.Running(),
		IP:      ip,
	}
	if response.Running {
		response.ViewerURL = handler.viewerURL(ip)
	}
	handler.respondJSON(w, http.StatusOK, response)
}

// Sources enumerates available capture sources.
func (handler *Handler) Sources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		handler.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	screens, err := handler.sources.ListScreens(r.Context())
	if err != nil {
		handler.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list sources: %v", err))
		return
	}

	response := dto.SourcesResponse{Screens: make([]dto.Screen, 0, len(screens))}
	for _, screen := range screens {
		response.Screens = append(response.Screens, dto.Screen{
			ID:   screen.ID,
			Name: screen.Name,
			Type: screen.Type,
		})
	}
	handler.respondJSON(w, http.StatusOK, response)
}

// Start launches a capture session. A malformed or empty body falls back to
// the default source.
func (handler *Handler) Start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		handler.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req dto.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = dto.StartRequest{}
	}

	result := handler.supervisor.Start(req.ID)
	ip := handler.localIP()
	response := dto.StartResponse{
		OK:      result.OK,
		Message: result.Message,
		IP:      ip,
	}
	if result.OK {
		response.URL = handler.viewerURL(ip)
	}
	handler.respondJSON(w, http.StatusOK, response)
}

// Stop ends the capture session. Stopping an idle server is a success.
func (handler *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		handler.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	handler.supervisor.Stop()
	handler.respondJSON(w, http.StatusOK, dto.StopResponse{OK: true, Message: "Stopped"})
}

// Events upgrades to a websocket pushing running-state transitions.
func (handler *Handler) Events(w http.ResponseWriter, r *http.Request) {
	handler.hub.ServeWS(w, r)
}

func (handler *Handler) viewerURL(ip string) *string {
	url := fmt.Sprintf("http://%s:%d", ip, handler.config.Port)
	return &url
}

func (handler *Handler) servePage(w http.ResponseWriter, page []byte) {
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}

func (handler *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (handler *Handler) respondError(w http.ResponseWriter, status int, message string) {
	handler.respondJSON(w, status, dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
