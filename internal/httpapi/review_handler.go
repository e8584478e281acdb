package httpapi

import (
	"net/http"

	"review_gateway/internal/review"
	"review_gateway/internal/utils"
)

// handleReview handles POST /api/review
func (d *Dependencies) handleReview(w http.ResponseWriter, r *http.Request) {
	var req review.Request
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := d.Reviews.Execute(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, result)
}
