package notify

import (
	"log"
	"net/http"

	"storefront/utils"

	"github.com/julienschmidt/httprouter"
)

// GET /api/admin/notify/stats
func (q *Queue) StatsHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := q.Stats(r.Context())
	if err != nil {
		log.Printf("StatsHandler: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "could not read queue")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, stats)
}
