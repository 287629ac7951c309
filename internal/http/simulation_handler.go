package http

import (
	"fmt"
	"net/http"

	"github.com/tuanvumaihuynh/shop-simulator/internal/service"
)

type simulationHandler struct {
	srv     *Service
	shopSvc service.ShopService
}

func newSimulationHandler(srv *Service, shopSvc service.ShopService) *simulationHandler {
	return &simulationHandler{
		srv:     srv,
		shopSvc: shopSvc,
	}
}

func (h *simulationHandler) openForCustomers(w http.ResponseWriter, r *http.Request) {
	run, err := h.shopSvc.OpenForCustomers(r.Context())
	if err != nil {
		h.srv.handleResponseError(w, r, fmt.Errorf("shop service open for customers: %w", err))
		return
	}

	h.srv.writeJSON(w, r, http.StatusAccepted, toRunResponse(run))
}

func (h *simulationHandler) reaccount(w http.ResponseWriter, r *http.Request) {
	run, err := h.shopSvc.Reaccount(r.Context())
	if err != nil {
		h.srv.handleResponseError(w, r, fmt.Errorf("shop service reaccount: %w", err))
		return
	}

	h.srv.writeJSON(w, r, http.StatusAccepted, toRunResponse(run))
}
