// Package scrape implements the POST /scrape/brand/{id} operational
// endpoint (§6.3): 202 once a run has been accepted and started in the
// background, 409 if the brand is already locked, 404 if it doesn't exist.
package scrape

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"mediascrape/internal/coordinate"
	"mediascrape/internal/domain/entity"
	"mediascrape/internal/handler/http/respond"
)

// BrandGetter is the narrow slice of repository.Store this handler needs
// for its own 404 check, kept separate from the Coordinator's internal
// lock-acquisition so the handler never has to guess why a lock failed.
type BrandGetter interface {
	GetBrand(ctx context.Context, brandID int64) (*entity.Brand, error)
}

// Coordinator is the slice of coordinate.Coordinator this handler drives.
type Coordinator interface {
	StartScrape(ctx context.Context, brandID int64, trigger coordinate.Trigger) (runID string, err error)
}

type TriggerHandler struct {
	Brands      BrandGetter
	Coordinator Coordinator
}

type triggerResponse struct {
	RunID string `json:"run_id"`
}

func (h TriggerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	brandID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid brand id"))
		return
	}

	if _, err := h.Brands.GetBrand(r.Context(), brandID); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			respond.SafeError(w, http.StatusNotFound, err)
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	runID, err := h.Coordinator.StartScrape(r.Context(), brandID, coordinate.TriggerAPI)
	if err != nil {
		if errors.Is(err, entity.ErrLocked) {
			respond.SafeError(w, http.StatusConflict, err)
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusAccepted, triggerResponse{RunID: runID})
}

// Register mounts the scrape-trigger route onto mux.
func Register(mux *http.ServeMux, brands BrandGetter, coord Coordinator) {
	mux.Handle("POST /scrape/brand/{id}", TriggerHandler{Brands: brands, Coordinator: coord})
}
