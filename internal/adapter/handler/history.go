package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/semmidev/cloudvault/internal/infrastructure/logger"
	"github.com/semmidev/cloudvault/internal/usecase"
)

type HistoryHandler struct {
	history *usecase.History
	logger  *logger.Logger
}

func NewHistoryHandler(history *usecase.History, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, logger: log}
}

type deleteHistoryResponse struct {
	Message        string `json:"message"`
	RemainingCount int    `json:"remainingCount"`
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.history.List())
}

func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ids, msg := parseIDs(r)
	if msg != "" {
		h.logger.Warnf("Rejected delete-history request: %s", msg)
		JSONError(w, http.StatusBadRequest, msg)
		return
	}

	remaining := h.history.RemoveByIDs(ids)
	JSON(w, http.StatusOK, deleteHistoryResponse{
		Message:        "History items deleted successfully",
		RemainingCount: remaining,
	})
}

// parseIDs reads {"ids": [...]}. It returns a client-facing message when the
// body is not that shape; the ledger must not be touched in that case.
func parseIDs(r *http.Request) ([]int64, string) {
	var req struct {
		IDs interface{} `json:"ids"`
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return nil, "Invalid JSON body"
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, "Invalid JSON body"
	}

	raw, ok := req.IDs.([]interface{})
	if !ok {
		return nil, "ids must be an array"
	}

	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		n, ok := v.(json.Number)
		if !ok {
			return nil, "ids must contain only integers"
		}
		id, err := n.Int64()
		if err != nil {
			return nil, "ids must contain only integers"
		}
		ids = append(ids, id)
	}
	return ids, ""
}
