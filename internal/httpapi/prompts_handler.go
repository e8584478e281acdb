package httpapi

import (
	"net/http"

	"review_gateway/internal/apperr"
	"review_gateway/internal/utils"
)

// handleListPrompts handles GET /api/prompts
func (d *Dependencies) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := d.Prompts.List(r.Context())
	if err != nil {
		respondError(w, r, apperr.Internal("Failed to list prompts", err))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, prompts)
}
