package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"workmesh/pkg/aggregate"
	"workmesh/pkg/claims"
	"workmesh/pkg/errs"
	"workmesh/pkg/task"
)

const (
	lenID        int    = 24
	typeError    string = "error"
	typeMessage  string = "message"
	muxVarTaskID string = "task_id"
)

type UptimeReport struct {
	Uptime float64 `json:"uptime"`
}

type BandwidthReport struct {
	DownloadSpeed float64 `json:"download_speed"`
	UploadSpeed   float64 `json:"upload_speed"`
	Latency       float64 `json:"latency"`
}

type TaskResult struct {
	ResponseCode int    `json:"response_code"`
	ResponseRaw  string `json:"response_raw"`
}

// WorkerHandler serves the authenticated worker API: liveness and
// bandwidth reports, task pull and task submission. The nonce middleware
// has already vouched for the caller by the time these run.
type WorkerHandler struct {
	Recorder aggregate.RecorderInterface
	Tasks    task.ServiceInterface
	Logger   *slog.Logger
}

func NewWorkerHandler(recorder aggregate.RecorderInterface, tasks task.ServiceInterface, logger *slog.Logger) *WorkerHandler {
	return &WorkerHandler{
		Recorder: recorder,
		Tasks:    tasks,
		Logger:   logger,
	}
}

func (h *WorkerHandler) ReportUptime(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var report UptimeReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		h.Logger.Error("invalid json", "error", err)
		writeError(w, http.StatusBadRequest, typeError, "invalid JSON payload")
		return
	}
	if report.Uptime < 0 {
		writeError(w, http.StatusBadRequest, typeMessage, "uptime must not be negative")
		return
	}

	c, ok := claimsFromContext(w, r)
	if !ok {
		return
	}

	a, err := h.Recorder.RecordUptime(c.User.ID, report.Uptime)
	if err != nil {
		h.Logger.Error("report uptime", "error", err, "user", c.User.ID)
		writeError(w, http.StatusInternalServerError, typeError, "failed to record uptime")
		return
	}

	if ok := writeJSON(w, h.Logger, a); ok {
		h.Logger.Info("uptime reported", "user", c.User.ID)
	}
}

func (h *WorkerHandler) SubmitBandwidth(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var report BandwidthReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		h.Logger.Error("invalid json", "error", err)
		writeError(w, http.StatusBadRequest, typeError, "invalid JSON payload")
		return
	}

	c, ok := claimsFromContext(w, r)
	if !ok {
		return
	}

	if err := h.Recorder.RecordBandwidth(c.User.ID, report.DownloadSpeed, report.UploadSpeed, report.Latency); err != nil {
		h.Logger.Error("submit bandwidth", "error", err, "user", c.User.ID)
		writeError(w, http.StatusInternalServerError, typeError, "failed to record bandwidth")
		return
	}

	if ok := writeJSON(w, h.Logger, map[string]string{"message": "success"}); ok {
		h.Logger.Info("bandwidth submitted", "user", c.User.ID)
	}
}

func (h *WorkerHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	c, ok := claimsFromContext(w, r)
	if !ok {
		return
	}

	assigned, err := h.Tasks.Assign(c.User.ID)
	if err != nil {
		if errors.Is(err, errs.ErrNoTasksAvailable) {
			writeError(w, http.StatusNotFound, typeMessage, err.Error())
			return
		}
		h.Logger.Error("get task", "error", err, "user", c.User.ID)
		writeError(w, http.StatusInternalServerError, typeError, "failed to assign task")
		return
	}

	if ok := writeJSON(w, h.Logger, assigned); ok {
		h.Logger.Info("task assigned", "user", c.User.ID, "task", assigned.ID)
	}
}

func (h *WorkerHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	vars := mux.Vars(r)

	taskID, ok := vars[muxVarTaskID]
	if !ok || len(taskID) != lenID {
		writeError(w, http.StatusBadRequest, typeMessage, "invalid task id")
		return
	}

	var result TaskResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		h.Logger.Error("invalid json", "error", err)
		writeError(w, http.StatusBadRequest, typeError, "invalid JSON payload")
		return
	}

	c, ok := claimsFromContext(w, r)
	if !ok {
		return
	}

	submitted, err := h.Tasks.Submit(c.User.ID, taskID, result.ResponseCode, result.ResponseRaw)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrTaskNotFound):
			writeError(w, http.StatusNotFound, typeMessage, err.Error())
		case errors.Is(err, errs.ErrTaskAlreadySubmitted):
			writeError(w, http.StatusConflict, typeMessage, err.Error())
		default:
			h.Logger.Error("submit task", "error", err, "user", c.User.ID, "task", taskID)
			writeError(w, http.StatusInternalServerError, typeError, "failed to submit task")
		}
		return
	}

	if ok := writeJSON(w, h.Logger, submitted); ok {
		h.Logger.Info("task submitted", "user", c.User.ID, "task", taskID)
	}
}

func (h *WorkerHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var newTask task.Task
	if err := json.NewDecoder(r.Body).Decode(&newTask); err != nil {
		h.Logger.Error("invalid json", "error", err)
		writeError(w, http.StatusBadRequest, typeError, "invalid JSON payload")
		return
	}

	c, ok := claimsFromContext(w, r)
	if !ok {
		return
	}

	if err := h.Tasks.Create(c.User.ID, &newTask); err != nil {
		if errors.Is(err, errs.ErrStorage) {
			h.Logger.Error("create task", "error", err, "user", c.User.ID)
			writeError(w, http.StatusInternalServerError, typeError, "failed to create task")
			return
		}
		writeError(w, http.StatusBadRequest, typeError, err.Error())
		return
	}

	if ok := writeJSON(w, h.Logger, newTask); ok {
		h.Logger.Info("task created", "user", c.User.ID, "task", newTask.ID)
	}
}

func (h *WorkerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	c, ok := claimsFromContext(w, r)
	if !ok {
		return
	}

	stats, err := h.Recorder.Stats(c.User.ID)
	if err != nil {
		h.Logger.Error("get stats", "error", err, "user", c.User.ID)
		writeError(w, http.StatusInternalServerError, typeError, "failed to load stats")
		return
	}

	writeJSON(w, h.Logger, stats)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, data any) bool {
	resp, err := json.Marshal(data)
	if err != nil {
		logger.Error("Failed to serialize JSON response", "error", err)
		writeError(w, http.StatusInternalServerError, typeError, "failed json marshal")
		return false
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err := w.Write(resp); err != nil {
		logger.Error("Failed to write response to client", "error", err)
		return false
	}
	return true
}

func claimsFromContext(w http.ResponseWriter, r *http.Request) (*claims.Claims, bool) {
	val, ok := r.Context().Value(claims.TokenContextKey).(*claims.Claims)
	if !ok || val == nil || val.User.ID == "" {
		writeError(w, http.StatusUnauthorized, typeMessage, "unauthorized")
		return nil, false
	}
	return val, true
}

func writeError(w http.ResponseWriter, status int, field, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{field: msg}); err != nil {
		return
	}
}
