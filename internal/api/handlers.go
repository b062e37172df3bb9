package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vibecast/internal/logging"
	"vibecast/internal/pipeline"
	"vibecast/internal/podcast"
	"vibecast/internal/tasks"
)

type generateRequest struct {
	Document      json.RawMessage `json:"document"`
	Quality       string          `json:"quality,omitempty"`
	OutputName    string          `json:"output_name,omitempty"`
	Speaker1Voice string          `json:"speaker_1_voice,omitempty"`
	Speaker2Voice string          `json:"speaker_2_voice,omitempty"`
	AudioPodcast  *bool           `json:"audio_podcast,omitempty"`
}

type generateResponse struct {
	TaskID string `json:"task_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if len(req.Document) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing document"})
		return
	}

	doc, err := podcast.Parse(bytesReader(req.Document))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	taskID := uuid.NewString()
	go func() {
		// The task outlives the submitting request.
		if _, err := s.generator.Run(context.Background(), pipeline.Request{
			Document:      doc,
			TaskID:        taskID,
			Quality:       req.Quality,
			OutputName:    req.OutputName,
			Speaker1Voice: req.Speaker1Voice,
			Speaker2Voice: req.Speaker2Voice,
			AudioPodcast:  req.AudioPodcast,
		}); err != nil {
			s.logger.Error("generation task failed",
				logging.String(logging.FieldTaskID, taskID),
				logging.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, generateResponse{TaskID: taskID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	if state, ok := s.observer.State(taskID); ok {
		writeJSON(w, http.StatusOK, state)
		return
	}

	if s.journal != nil {
		record, err := s.journal.Get(r.Context(), taskID)
		if err == nil {
			writeJSON(w, http.StatusOK, record)
			return
		}
		if !errors.Is(err, tasks.ErrNotFound) {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown task"})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSON(w, http.StatusOK, []tasks.Record{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.journal.List(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if records == nil {
		records = []tasks.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
