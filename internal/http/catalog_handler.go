package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tuanvumaihuynh/shop-simulator/internal/apperr"
	"github.com/tuanvumaihuynh/shop-simulator/internal/event"
	"github.com/tuanvumaihuynh/shop-simulator/internal/service"
)

// eventBuffer is how many catalog changes a stream may lag behind before
// further changes are dropped for that client.
const eventBuffer = 64

var errSlowSubscriber = errors.New("event stream subscriber is lagging")

type catalogHandler struct {
	srv     *Service
	shopSvc service.ShopService
	events  Subscriber
}

func newCatalogHandler(srv *Service, shopSvc service.ShopService, events Subscriber) *catalogHandler {
	return &catalogHandler{
		srv:     srv,
		shopSvc: shopSvc,
		events:  events,
	}
}

func (h *catalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	minStock := 0
	if v := r.URL.Query().Get("min_stock"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.srv.handleResponseError(w, r, apperr.ValidationErr.WrapParent(fmt.Errorf("min_stock must be a non-negative integer, got %q", v)))
			return
		}
		minStock = n
	}

	products, err := h.shopSvc.ListProducts(r.Context())
	if err != nil {
		h.srv.handleResponseError(w, r, fmt.Errorf("shop service list products: %w", err))
		return
	}

	items := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		if p.UnitsInStock < minStock {
			continue
		}
		items = append(items, toProductResponse(p))
	}

	h.srv.writeJSON(w, r, http.StatusOK, items)
}

func (h *catalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.shopSvc.GetProduct(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.srv.handleResponseError(w, r, fmt.Errorf("shop service get product: %w", err))
		return
	}

	h.srv.writeJSON(w, r, http.StatusOK, toProductResponse(product))
}

func (h *catalogHandler) getBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.shopSvc.Balance(r.Context())
	if err != nil {
		h.srv.handleResponseError(w, r, fmt.Errorf("shop service balance: %w", err))
		return
	}

	h.srv.writeJSON(w, r, http.StatusOK, BalanceResponse{CashBalance: balance})
}

// streamEvents streams catalog changes as server-sent events until the
// client disconnects.
func (h *catalogHandler) streamEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := http.NewResponseController(w)

	changes := make(chan event.CatalogChangedEvent, eventBuffer)
	unsubscribe := h.events.Subscribe(event.TopicCatalogChanged, func(_ context.Context, _ string, payload any) error {
		ev, ok := payload.(event.CatalogChangedEvent)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", payload)
		}

		select {
		case changes <- ev:
			return nil
		default:
			return errSlowSubscriber
		}
	})
	defer unsubscribe()

	//nolint:errcheck
	rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-changes:
			data, err := json.Marshal(ev)
			if err != nil {
				h.srv.logger.ErrorContext(ctx, "error encoding catalog event", slog.Any("error", err))
				continue
			}

			if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Sequence, event.TopicCatalogChanged, data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
