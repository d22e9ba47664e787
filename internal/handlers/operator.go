package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sdko-org/get2put/internal/journal"
	"github.com/sdko-org/get2put/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

// JournalReader is the read side of a persistent journal sink.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// OperatorHandler serves read-only views of the endpoint archive and the
// journal. Either backend may be nil, in which case its route answers 404.
type OperatorHandler struct {
	records storage.RecordStore
	journal JournalReader
	log     *logrus.Entry
}

func NewOperatorHandler(logger *logrus.Logger, records storage.RecordStore, jr JournalReader) *OperatorHandler {
	return &OperatorHandler{
		records: records,
		journal: jr,
		log:     logger.WithField("component", "operator"),
	}
}

type journalLine struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// GetTunnel returns the last archived endpoint record for /tunnels/{id}.
func (h *OperatorHandler) GetTunnel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	log := h.log.WithFields(logrus.Fields{
		"operation": "get_tunnel",
		"tunnel_id": id,
	})

	if h.records == nil {
		writeJSON(w, http.StatusNotFound, apiResponse{Status: "error", Message: "endpoint archive is disabled"})
		return
	}

	rec, err := h.records.GetRecord(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrRecordNotFound):
		writeJSON(w, http.StatusNotFound, apiResponse{Status: "error", Message: "no record for tunnel " + id})
		return
	case err != nil:
		log.WithError(err).Error("Failed to read endpoint record")
		writeJSON(w, http.StatusBadGateway, apiResponse{Status: "error", Message: "endpoint archive unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RecentJournal returns the newest journal lines, limited by ?limit=N.
func (h *OperatorHandler) RecentJournal(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSON(w, http.StatusNotFound, apiResponse{Status: "error", Message: "journal database is disabled"})
		return
	}

	limit := defaultJournalLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, apiResponse{Status: "error", Message: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxJournalLimit)
	}

	entries, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to read journal")
		writeJSON(w, http.StatusInternalServerError, apiResponse{Status: "error", Message: "journal unavailable"})
		return
	}

	lines := make([]journalLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, journalLine{Time: e.Time.UTC(), Message: e.Message})
	}
	writeJSON(w, http.StatusOK, lines)
}
