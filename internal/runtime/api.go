package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/loqalabs/loqa-voiceclone/internal/emotion"
	"github.com/loqalabs/loqa-voiceclone/internal/history"
	"github.com/loqalabs/loqa-voiceclone/internal/session"
	"github.com/loqalabs/loqa-voiceclone/internal/tts"
)

const maxUploadBytes = 32 << 20

// api exposes the session over HTTP. Requests run on ctx, not on the client
// connection; only shutdown cancels a synthesis run.
type api struct {
	ctx       context.Context
	runner    *session.Runner
	history   *history.Store
	logger    *slog.Logger
	maxUpload int64
}

type voiceBody struct {
	Text     string  `json:"text"`
	Emotion  string  `json:"emotion"`
	Strength float64 `json:"strength"`
	Speed    float64 `json:"speed"`
}

func (b voiceBody) settings() emotion.Settings {
	return emotion.Settings{Emotion: b.Emotion, Strength: b.Strength, Speed: b.Speed}
}

type resultResponse struct {
	session.Result
	URL         string `json:"url,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

func newAPI(ctx context.Context, runner *session.Runner, store *history.Store, logger *slog.Logger) *api {
	return &api{
		ctx:       ctx,
		runner:    runner,
		history:   store,
		logger:    logger.With(slog.String("component", "api")),
		maxUpload: maxUploadBytes,
	}
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/voice", a.handleUploadVoice)
	mux.HandleFunc("GET /api/voice", a.handleReferenceVoice)
	mux.HandleFunc("GET /api/emotions", a.handleEmotions)
	mux.HandleFunc("POST /api/speak", a.handleSpeak)
	mux.HandleFunc("POST /api/record", a.handleRecord)
	mux.HandleFunc("GET /api/recording", a.handleRecording)
	mux.HandleFunc("POST /api/convert", a.handleConvert)
	mux.HandleFunc("GET /api/output/{artifact}", a.handleOutput)
	mux.HandleFunc("GET /api/history", a.handleHistory)
}

func (a *api) handleUploadVoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)

	var audio io.Reader = r.Body
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				a.writeError(w, err)
				return
			}
			a.writeJSON(w, http.StatusBadRequest, errorBody("missing form file \"file\": "+err.Error()))
			return
		}
		defer file.Close()
		audio = file
	}

	a.run(w, session.UploadVoiceRequest{Audio: audio})
}

func (a *api) handleReferenceVoice(w http.ResponseWriter, r *http.Request) {
	a.serveAudio(w, r, a.runner.State().ReferenceVoice, "")
}

func (a *api) handleEmotions(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{
		"default":  emotion.DefaultEmotion,
		"emotions": a.runner.Session().Presets().List(),
		"strength": map[string]float64{"min": emotion.MinStrength, "max": emotion.MaxStrength},
		"speed":    map[string]float64{"min": emotion.MinSpeed, "max": emotion.MaxSpeed},
	})
}

func (a *api) handleSpeak(w http.ResponseWriter, r *http.Request) {
	body, ok := a.decodeVoice(w, r)
	if !ok {
		return
	}
	a.run(w, session.TextToVoiceRequest{Text: body.Text, Voice: body.settings()})
}

func (a *api) handleRecord(w http.ResponseWriter, _ *http.Request) {
	a.run(w, session.RecordRequest{})
}

func (a *api) handleRecording(w http.ResponseWriter, r *http.Request) {
	a.serveAudio(w, r, a.runner.State().Recording, "")
}

func (a *api) handleConvert(w http.ResponseWriter, r *http.Request) {
	body, ok := a.decodeVoice(w, r)
	if !ok {
		return
	}
	a.run(w, session.ConvertRecordingRequest{Text: body.Text, Voice: body.settings()})
}

func (a *api) handleOutput(w http.ResponseWriter, r *http.Request) {
	path, download, ok := a.runner.Session().Layout().Artifact(r.PathValue("artifact"))
	if !ok {
		a.writeJSON(w, http.StatusNotFound, errorBody("unknown artifact"))
		return
	}
	if r.URL.Query().Get("download") == "" || r.URL.Query().Get("download") == "0" {
		download = ""
	}
	a.serveAudio(w, r, path, download)
}

func (a *api) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			a.writeJSON(w, http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		limit = n
	}
	entries, err := a.history.List(r.Context(), limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *api) decodeVoice(w http.ResponseWriter, r *http.Request) (voiceBody, bool) {
	var body voiceBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		a.writeJSON(w, http.StatusBadRequest, errorBody("invalid request body: "+err.Error()))
		return voiceBody{}, false
	}
	return body, true
}

func (a *api) run(w http.ResponseWriter, req session.Request) {
	res, err := a.runner.Do(a.ctx, req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	resp := resultResponse{Result: res}
	if res.Artifact != "" {
		resp.URL = "/api/output/" + res.Artifact
		resp.DownloadURL = resp.URL + "?download=1"
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *api) serveAudio(w http.ResponseWriter, r *http.Request, path, download string) {
	if path == "" {
		a.writeJSON(w, http.StatusNotFound, errorBody("audio not available"))
		return
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			a.writeJSON(w, http.StatusNotFound, errorBody("audio not available"))
			return
		}
		a.writeError(w, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	if download != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download))
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (a *api) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", slog.Int("status", status), slog.String("error", err.Error()))
	}
	a.writeJSON(w, status, errorBody(err.Error()))
}

func statusFor(err error) int {
	var synthErr *tts.SynthesisError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case session.IsValidation(err):
		return http.StatusBadRequest
	case errors.As(err, &synthErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": strings.TrimSpace(msg)}
}

func (a *api) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("failed to write response", slog.String("error", err.Error()))
	}
}
