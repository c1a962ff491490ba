package controllers

import (
	"ecgd/internal/apperrors"
	"ecgd/internal/providers"
	"ecgd/internal/services"
	"net/http"
	"strings"
)

type AdminController struct {
	logger  providers.Logger
	history services.HistoryServiceInterface
}

func NewAdminController(logger providers.Logger, history services.HistoryServiceInterface) *AdminController {
	return &AdminController{logger: logger, history: history}
}

// PurgeUserMeasurements is called when an account is removed.
func (ac *AdminController) PurgeUserMeasurements(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PathValue("id"))
	if userID == "" {
		writeError(w, ac.logger, r, apperrors.InvalidInput("purge", "user id is required"))
		return
	}

	n, err := ac.history.PurgeUser(r.Context(), userID)
	if err != nil {
		writeError(w, ac.logger, r, err)
		return
	}

	if p, ok := providers.PrincipalFromContext(r.Context()); ok {
		ac.logger.Warnf(providers.TypeAuth, "Admin %s purged %d measurements of %s", p.UserID, n, userID)
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
