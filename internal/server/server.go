// Package server exposes the wizard over HTTP. Each flow is one user's pass
// through the two steps; flow state lives in process, the cross-step handoff
// lives in the shared store.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"exhibitforms/internal/dictation"
	"exhibitforms/internal/exhibition"
	"exhibitforms/internal/flowtoken"
	"exhibitforms/internal/handoff"
	"exhibitforms/internal/pathalloc"
	"exhibitforms/internal/ratelimit"
	"exhibitforms/internal/store"
	"exhibitforms/internal/training"
	"exhibitforms/internal/util"
	"exhibitforms/pkg/domain"
	"exhibitforms/pkg/storage"
)

// AuthService validates bearer tokens against the external auth provider.
type AuthService interface {
	Me(ctx context.Context, token string) (domain.User, error)
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	Objects     storage.ObjectStore
	Bucket      string
	Handoffs    handoff.Store
	Times       pathalloc.TimeSource
	Rooms       training.RoomSubmitter
	Auth        AuthService
	Submissions store.Store
	FlowTokens  *flowtoken.Manager
	Speech      dictation.Engine

	StorageRoot     string
	GeneratorType   string
	RoomGeneratorID string

	RedisAddr                string
	RedisPassword            string
	FlowRateLimitPerMinute   int
	UploadRateLimitPerMinute int
	MaxUploadBytes           int64
}

const flowTokenHeader = "X-Flow-Token"

const defaultMaxUploadBytes = 25 << 20

// Server exposes HTTP endpoints for the wizard.
type Server struct {
	mux   *http.ServeMux
	flows *flowRegistry

	objects     storage.ObjectStore
	bucket      string
	handoffs    handoff.Store
	times       pathalloc.TimeSource
	rooms       training.RoomSubmitter
	auth        AuthService
	submissions store.Store
	flowTokens  *flowtoken.Manager
	speech      dictation.Engine

	storageRoot     string
	generatorType   string
	roomGeneratorID string
	maxUploadBytes  int64

	flowLimiter   *ratelimit.FixedWindowLimiter
	uploadLimiter *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	flowLimit := cfg.FlowRateLimitPerMinute
	if flowLimit <= 0 {
		flowLimit = 10
	}
	uploadLimit := cfg.UploadRateLimitPerMinute
	if uploadLimit <= 0 {
		uploadLimit = 60
	}
	flowLimiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "exhibitforms:ratelimit:flows", flowLimit, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("init flow limiter: %w", err)
	}
	uploadLimiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "exhibitforms:ratelimit:uploads", uploadLimit, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("init upload limiter: %w", err)
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	generatorType := cfg.GeneratorType
	if generatorType == "" {
		generatorType = "Standard"
	}
	s := &Server{
		mux:             http.NewServeMux(),
		flows:           newFlowRegistry(),
		objects:         cfg.Objects,
		bucket:          cfg.Bucket,
		handoffs:        cfg.Handoffs,
		times:           cfg.Times,
		rooms:           cfg.Rooms,
		auth:            cfg.Auth,
		submissions:     cfg.Submissions,
		flowTokens:      cfg.FlowTokens,
		speech:          cfg.Speech,
		storageRoot:     cfg.StorageRoot,
		generatorType:   generatorType,
		roomGeneratorID: cfg.RoomGeneratorID,
		maxUploadBytes:  maxUpload,
		flowLimiter:     flowLimiter,
		uploadLimiter:   uploadLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped in the middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("wizard", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.Handle("POST /flows", s.authenticated(s.handleCreateFlow))

	s.mux.Handle("GET /flows/{id}", s.flowScoped(s.handleGetFlow))
	s.mux.Handle("PATCH /flows/{id}/exhibition", s.flowScoped(s.handleUpdateExhibition))
	s.mux.Handle("POST /flows/{id}/artworks", s.flowScoped(s.handleAddArtwork))
	s.mux.Handle("PATCH /flows/{id}/artworks/{index}", s.flowScoped(s.handleUpdateArtwork))
	s.mux.Handle("DELETE /flows/{id}/artworks/{index}", s.flowScoped(s.handleRemoveArtwork))
	s.mux.Handle("POST /flows/{id}/logo", s.flowScoped(s.handleUploadLogo))
	s.mux.Handle("POST /flows/{id}/artworks/{index}/image", s.flowScoped(s.handleUploadArtworkImage))
	s.mux.Handle("POST /flows/{id}/submit", s.flowScoped(s.handleSubmitExhibition))
	s.mux.Handle("GET /flows/{id}/review", s.flowScoped(s.handleReviewState))
	s.mux.Handle("POST /flows/{id}/review/next", s.flowScoped(s.handleReviewNext))

	s.mux.Handle("GET /flows/{id}/training", s.flowScoped(s.handleGetTraining))
	s.mux.Handle("PATCH /flows/{id}/training", s.flowScoped(s.handleUpdateTraining))
	s.mux.Handle("POST /flows/{id}/training/dictation", s.flowScoped(s.handleDictation))
	s.mux.Handle("POST /flows/{id}/training/submit", s.flowScoped(s.handleSubmitTraining))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticated requires a valid bearer token from the auth provider. The
// wizard never inspects the identity beyond its presence.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if _, err := s.auth.Me(r.Context(), token); err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r)
	})
}

// flowScoped chains the auth guard with the flow-token check: the token's
// subject must match the flow id in the path.
func (s *Server) flowScoped(next http.HandlerFunc) http.Handler {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request) {
		flowID := r.PathValue("id")
		subject, err := s.flowTokens.Verify(r.Header.Get(flowTokenHeader))
		if err != nil || subject != flowID {
			writeError(w, http.StatusForbidden, "invalid flow token")
			return
		}
		next(w, r)
	})
}

func (s *Server) handleCreateFlow(w http.ResponseWriter, r *http.Request) {
	if !s.flowLimiter.Allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too many flows, slow down")
		return
	}
	flowID := util.NewID()
	alloc := pathalloc.New(s.storageRoot, s.times)
	fs := newFlowState(flowID, exhibition.Config{
		Allocator: alloc,
		Objects:   s.objects,
		Bucket:    s.bucket,
		Handoffs:  s.handoffs,
	})
	s.flows.put(flowID, fs)

	token, err := s.flowTokens.Issue(flowID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue flow token")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"flowId":    flowID,
		"flowToken": token,
		"draft":     fs.builder.Draft(),
	})
}

func (s *Server) flow(w http.ResponseWriter, r *http.Request) (*flowState, bool) {
	fs, ok := s.flows.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown flow")
		return nil, false
	}
	return fs, true
}

func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	fs, ok := s.flow(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"draft":       fs.builder.Draft(),
		"uploads":     fs.builder.UploadStates(),
		"fieldErrors": fs.builder.FieldErrors(),
		"unsavedData": fs.builder.HasUnsavedData(),
		"review":      fs.review.snapshot(),
	})
}

type fieldUpdate struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (s *Server) handleUpdateExhibition(w http.ResponseWriter, r *http.Request) {
	fs, ok := s.flow(w, r)
	if !ok {
		return
	}
	var upd fieldUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	value, ok := upd.Value.(string)
	if !ok {
		writeError(w, http.StatusBadRequest, "value must be a string")
		return
	}
	if err := fs.builder.UpdateField(upd.Field, value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": fs.builder.Draft()})
}

func (s *Server) handleAddArtwork(w http.ResponseWriter, r *http.Request) {
	fs, ok := s.flow(w, r)
	if !ok {
		return
	}
	art := fs.builder.AddArtwork()
	writeJSON(w, http.StatusCreated, map[string]any{"artwork": art})
}

func (s *Server) handleUpdateArtwork(w http.ResponseWriter, r *http.Request) {
	fs, ok := s.flow(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid artwork index")
		return
	}
	var upd fieldUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := fs.builder.UpdateArtwork(index, upd.Field, upd.Value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": fs.builder.Draft()})
}

func (s *Server) handleRemoveArtwork(w http.ResponseWriter, r *http.Request) {
	fs, ok := s.flow(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid artwork index")
		return
	}
	fs.builder.RemoveArtwork(index)
	writeJSON(w, http.StatusOK, map[string]any{"draft": fs.builder.Draft()})
}

func (s *Server) handleUploadLogo(w http.ResponseWriter, r *http.Request) {
	fs, ok := s.flow(w, r)
	if !ok {
		return
	}
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	if err := fs.builder.UploadLogo(r.Context(), filename, data); err != nil {
		writeError(w, http.StatusBadGateway, "logo upload failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": fs.builder.Draft()})
}

func (s *Server) handleUploadArtworkImage(w http.ResponseWriter, r *http.Request) {
	fs, ok := s.flow(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid artwork index")
		return
	}
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	if err := fs.builder.UploadArtworkImage(r.Context(), index, filename, data); err != nil {
		if strings.Contains(err.Error(), "out of range") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "artwork upload failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"draft":   fs.builder.Draft(),
		"uploads": fs.builder.UploadStates(),
	})
}

// readUpload pulls the "file" part out of a multipart request, bounded by
// the configured size cap and the upload rate limit.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	if !s.uploadLimiter.Allow(r.PathValue("id")) {
		writeError(w, http.StatusTooManyRequests, "too many uploads, slow down")
		return "", nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large or malformed")
		return "", nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file part")
		return "", nil, false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload")
		return "", nil, false
	}
	return header.Filename, data, true
}

func (s *Server) handleSubmitExhibition(w http.ResponseWriter, r *http.Request) {
	fs, ok := s.flow(w, r)
	if !ok {
		return
	}
	h, errs, err := fs.builder.Submit(r.Context(), fs.id)
	if errors.Is(err, exhibition.ErrValidationFailed) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":            "validation failed",
			"validationErrors": errs,
			"review":           fs.review.snapshot(),
		})
		return
	}
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("submit exhibition", "flow_id", fs.id, "error", err)
		writeError(w, http.StatusBadGateway, "could not prepare the exhibition, try again")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"folderName": h.FolderName})
}

func (s *Server) handleReviewState(w http.ResponseWriter, r *http.Request) {
	fs, ok := s.flow(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, fs.review.snapshot())
}

func (s *Server) handleReviewNext(w http.ResponseWriter, r *http.Request) {
	fs, ok := s.flow(w, r)
	if !ok {
		return
	}
	fs.builder.Reviewer().Advance()
	writeJSON(w, http.StatusOK, fs.review.snapshot())
}

// loadTraining returns the flow's training controller, loading it from the
// handoff on first use. A missing handoff means the session expired.
func (s *Server) loadTraining(ctx context.Context, fs *flowState) (*training.Controller, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.training != nil {
		return fs.training, nil
	}
	ctl, err := training.Load(ctx, training.Config{
		Handoffs:        s.handoffs,
		Rooms:           s.rooms,
		Submissions:     s.submissions,
		GeneratorType:   s.generatorType,
		RoomGeneratorID: s.roomGeneratorID,
	}, fs.id)
	if err != nil {
		return nil, err
	}
	fs.training = ctl
	fs.recorder = dictation.New(s.speech, ctl.AppendTranscript)
	return ctl, nil
}

func (s *Server) trainingController(w http.ResponseWriter, r *http.Request) (*flowState, *training.Controller, bool) {
	fs, ok := s.flow(w, r)
	if !ok {
		return nil, nil, false
	}
	ctl, err := s.loadTraining(r.Context(), fs)
	if errors.Is(err, training.ErrSessionExpired) {
		writeError(w, http.StatusGone, "wizard session expired, start over")
		return nil, nil, false
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, "could not load training data")
		return nil, nil, false
	}
	return fs, ctl, true
}

func (s *Server) handleGetTraining(w http.ResponseWriter, r *http.Request) {
	fs, ctl, ok := s.trainingController(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"draft":              ctl.Draft(),
		"artists":            ctl.Artists(),
		"data":               ctl.Data(),
		"fieldErrors":        ctl.FieldErrors(),
		"dictationAvailable": fs.recorder.Available(),
		"submitted":          ctl.Submitted(),
	})
}

func (s *Server) handleUpdateTraining(w http.ResponseWriter, r *http.Request) {
	_, ctl, ok := s.trainingController(w, r)
	if !ok {
		return
	}
	var upd fieldUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	value, isString := upd.Value.(string)
	if !isString {
		writeError(w, http.StatusBadRequest, "value must be a string")
		return
	}
	if err := ctl.SetField(upd.Field, value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": ctl.Data()})
}

type dictationRequest struct {
	Action string `json:"action"`
	Field  string `json:"field"`
	Lang   string `json:"lang"`
}

func (s *Server) handleDictation(w http.ResponseWriter, r *http.Request) {
	fs, _, ok := s.trainingController(w, r)
	if !ok {
		return
	}
	var req dictationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	var err error
	switch req.Action {
	case "start":
		err = fs.recorder.Start(req.Field, req.Lang)
	case "stop":
		fs.recorder.Stop()
	case "toggle":
		err = fs.recorder.Toggle(req.Field, req.Lang)
	default:
		writeError(w, http.StatusBadRequest, "unknown dictation action")
		return
	}
	if errors.Is(err, dictation.ErrUnavailable) {
		writeError(w, http.StatusConflict, "speech recognition unavailable")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, "could not start dictation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recording": fs.recorder.Active()})
}

func (s *Server) handleSubmitTraining(w http.ResponseWriter, r *http.Request) {
	_, ctl, ok := s.trainingController(w, r)
	if !ok {
		return
	}
	_, errs, err := ctl.Submit(r.Context())
	if errors.Is(err, training.ErrValidationFailed) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":            "validation failed",
			"validationErrors": errs,
		})
		return
	}
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("submit training", "error", err)
		writeError(w, http.StatusBadGateway, "room creation failed, try again")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submitted": true})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
