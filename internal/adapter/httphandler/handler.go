package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/niksmo/parentshop/internal/core/port"
)

const maxBodyBytes = 64 << 10

// GET    /v1/products?category=&price=&sort= (200 OK)
// GET    /v1/products/{productID} (200 OK, 404 Not found)
// GET    /v1/cart (200 OK)
// POST   /v1/cart/items {"product_id"} (200 OK, 400, 404)
// DELETE /v1/cart/items/{productID} (200 OK)
// POST   /v1/checkout (200 OK, 409 Conflict on empty cart)
// POST   /v1/newsletter {"email"} (200 OK, 400)
// POST   /v1/pages {"name","properties"} (202 Accepted, 422)
// POST   /v1/scroll {"percent"} (200 OK)
// POST   /v1/events {"type","name","properties"} (202 Accepted, 422, 429)
// GET    /v1/session/activity (200 OK, 503)

type StoreHandler struct {
	products   port.ProductLister
	cart       port.CartManager
	newsletter port.NewsletterSubscriber
	tracker    port.VisitorTracker
}

func NewStoreHandler(
	products port.ProductLister,
	cart port.CartManager,
	newsletter port.NewsletterSubscriber,
	tracker port.VisitorTracker,
) StoreHandler {
	return StoreHandler{products, cart, newsletter, tracker}
}

// NewRouter returns the storefront API with its middlewares applied.
func NewRouter(
	h StoreHandler, limiter *SessionRateLimiter, sessionMaxAge time.Duration,
) http.Handler {
	r := chi.NewRouter()
	r.Use(AllowJSON, Sessions(sessionMaxAge))
	r.Route("/v1", func(r chi.Router) {
		h.Routes(r, limiter)
	})
	return r
}

func (h StoreHandler) Routes(r chi.Router, limiter *SessionRateLimiter) {
	r.Get("/products", h.ListProducts)
	r.Get("/products/{productID}", h.ViewProduct)
	r.Get("/cart", h.OpenCart)
	r.Post("/cart/items", h.AddToCart)
	r.Delete("/cart/items/{productID}", h.RemoveFromCart)
	r.Post("/checkout", h.Checkout)
	r.Post("/newsletter", h.SignupNewsletter)
	r.Post("/pages", h.TrackPage)
	r.Post("/scroll", h.TrackScroll)
	r.With(limiter.Middleware).Post("/events", h.TrackEvent)
	r.Get("/session/activity", h.SessionActivity)
}

func (h StoreHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	const op = "StoreHandler.ListProducts"
	log := slog.With("op", op)

	q := r.URL.Query()
	fs := domain.DefaultFilterState()
	fs.Category = domain.ParseCategory(q.Get("category"))
	fs.Sort = domain.ParseSortKey(q.Get("sort"))

	pr, ok := domain.ParsePriceRange(q.Get("price"))
	if !ok {
		log.Debug("malformed price range", "price", q.Get("price"))
	}
	fs.PriceRange = pr

	ps, err := h.products.ListProducts(r.Context(), visitor(r), fs)
	if err != nil {
		h.handleErr(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, ProductsResponse{
		Filter:   toFilter(fs),
		Count:    len(ps),
		Products: toProductCards(ps),
	})
}

func (h StoreHandler) ViewProduct(w http.ResponseWriter, r *http.Request) {
	const op = "StoreHandler.ViewProduct"
	log := slog.With("op", op)

	p, err := h.products.ViewProduct(
		r.Context(), visitor(r), chi.URLParam(r, "productID"),
	)
	if err != nil {
		h.handleErr(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductCards([]domain.Product{p})[0])
}

func (h StoreHandler) OpenCart(w http.ResponseWriter, r *http.Request) {
	const op = "StoreHandler.OpenCart"
	log := slog.With("op", op)

	cart, err := h.cart.OpenCart(r.Context(), visitor(r))
	if err != nil {
		h.handleErr(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, CartResponse{Cart: toCart(cart)})
}

func (h StoreHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	const op = "StoreHandler.AddToCart"
	log := slog.With("op", op)

	var req AddItemRequest
	if !decodeJSON(w, r, log, &req) {
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	cart, n, err := h.cart.AddToCart(r.Context(), visitor(r), req.ProductID)
	if err != nil {
		h.handleErr(w, log, err)
		return
	}

	notification := toNotification(n)
	writeJSON(w, http.StatusOK, CartResponse{
		Cart:         toCart(cart),
		Notification: &notification,
	})
}

func (h StoreHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	const op = "StoreHandler.RemoveFromCart"
	log := slog.With("op", op)

	cart, err := h.cart.RemoveFromCart(
		r.Context(), visitor(r), chi.URLParam(r, "productID"),
	)
	if err != nil {
		h.handleErr(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, CartResponse{Cart: toCart(cart)})
}

func (h StoreHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	const op = "StoreHandler.Checkout"
	log := slog.With("op", op)

	outcome, err := h.cart.Checkout(r.Context(), visitor(r))
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCart) {
			writeJSON(w, http.StatusConflict, toCheckoutResponse(outcome))
			return
		}
		h.handleErr(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, toCheckoutResponse(outcome))
}

func (h StoreHandler) SignupNewsletter(w http.ResponseWriter, r *http.Request) {
	const op = "StoreHandler.SignupNewsletter"
	log := slog.With("op", op)

	var req NewsletterRequest
	if !decodeJSON(w, r, log, &req) {
		return
	}

	n, err := h.newsletter.SignupNewsletter(r.Context(), visitor(r), req.Email)
	if err != nil {
		h.handleErr(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, NotificationResponse{toNotification(n)})
}

func (h StoreHandler) TrackPage(w http.ResponseWriter, r *http.Request) {
	const op = "StoreHandler.TrackPage"
	log := slog.With("op", op)

	var req PageRequest
	if !decodeJSON(w, r, log, &req) {
		return
	}

	err := h.tracker.TrackPage(
		r.Context(), visitor(r), req.Name, domain.Properties(req.Properties),
	)
	if err != nil {
		h.handleErr(w, log, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h StoreHandler) TrackScroll(w http.ResponseWriter, r *http.Request) {
	const op = "StoreHandler.TrackScroll"
	log := slog.With("op", op)

	var req ScrollRequest
	if !decodeJSON(w, r, log, &req) {
		return
	}

	reported, err := h.tracker.TrackScroll(r.Context(), visitor(r), req.Percent)
	if err != nil {
		h.handleErr(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, ScrollResponse{reported})
}

func (h StoreHandler) TrackEvent(w http.ResponseWriter, r *http.Request) {
	const op = "StoreHandler.TrackEvent"
	log := slog.With("op", op)

	var req EventRequest
	if !decodeJSON(w, r, log, &req) {
		return
	}

	evt := domain.Event{
		Type:       domain.EventType(req.Type),
		Name:       req.Name,
		Properties: domain.Properties(req.Properties),
	}
	if err := h.tracker.TrackEvent(r.Context(), visitor(r), evt); err != nil {
		h.handleErr(w, log, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h StoreHandler) SessionActivity(w http.ResponseWriter, r *http.Request) {
	const op = "StoreHandler.SessionActivity"
	log := slog.With("op", op)

	a, err := h.tracker.SessionActivity(r.Context(), visitor(r))
	if err != nil {
		h.handleErr(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, ActivityResponse{
		SessionID: a.SessionID,
		Events:    a.Events,
	})
}

func (h StoreHandler) handleErr(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, domain.ErrEmptyEmail):
		writeError(w, http.StatusBadRequest, "email is required")
	case errors.Is(err, domain.ErrInvalidEvent):
		log.Debug("invalid event rejected", "err", err)
		writeError(w, http.StatusUnprocessableEntity, "invalid event")
	case errors.Is(err, domain.ErrActivityUnavailable):
		writeError(w, http.StatusServiceUnavailable, "session activity is unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn("request aborted", "err", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable")
	default:
		log.Error("failed to handle request", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(
	w http.ResponseWriter, r *http.Request, log *slog.Logger, v any,
) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Warn("failed to parse JSON", "err", err)
		writeError(w, http.StatusBadRequest, "invalid JSON data")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response body", "op", "writeJSON", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{msg})
}
