package handlers

import (
	"net/http"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/dvoloshyn/pocket-money/internal/api/middleware"
	"github.com/dvoloshyn/pocket-money/internal/archive"
	"github.com/dvoloshyn/pocket-money/internal/auth"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ArchiveHandler serves reads from the analytics archive.
type ArchiveHandler struct {
	archiver archive.Archiver
	log      zerolog.Logger
}

// NewArchiveHandler creates an archive handler. archiver may be nil when the
// archive backend is not configured; requests then get 503.
func NewArchiveHandler(archiver archive.Archiver, log zerolog.Logger) *ArchiveHandler {
	return &ArchiveHandler{archiver: archiver, log: log}
}

// Records handles GET /api/archive/records?start=YYYY-MM-DD&end=YYYY-MM-DD,
// returning the caller's archived transactions in the inclusive date range.
func (h *ArchiveHandler) Records(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if h.archiver == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Archive is not configured")
		return
	}

	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if !datePattern.MatchString(start) || !datePattern.MatchString(end) {
		middleware.WriteError(w, http.StatusBadRequest, "start and end must be YYYY-MM-DD")
		return
	}

	rows, err := h.archiver.RecordsByIdentity(r.Context(), identity.ID.String(), start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read archive records")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read archive records")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"records": rows,
		"count":   len(rows),
	})
}
