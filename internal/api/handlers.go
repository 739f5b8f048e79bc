// Package api exposes bid placement, bid history and payout requests over
// HTTP. The caller's identity arrives in the X-User-ID header set by the
// upstream auth proxy.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/safar/auction-ledger/internal/apperr"
	"github.com/safar/auction-ledger/internal/models"
	"github.com/safar/auction-ledger/internal/store"
	"github.com/shopspring/decimal"
)

const userIDHeader = "X-User-ID"

type BidPlacer interface {
	PlaceBid(ctx context.Context, productID, bidderID string, amount decimal.Decimal, autoMaxBid decimal.NullDecimal) (*models.Bid, error)
}

type BidHistory interface {
	ListBidsCursor(ctx context.Context, productID, cursor string, limit int) (*store.CursorPage, error)
}

type PayoutRequester interface {
	RequestPayout(ctx context.Context, sellerID, method string, details map[string]string) (*models.Payout, error)
}

type PayoutLister interface {
	ListPayoutsForSeller(ctx context.Context, sellerID string) ([]models.Payout, error)
}

type Handler struct {
	bids    BidPlacer
	history BidHistory
	payouts PayoutRequester
	ledger  PayoutLister
	logger  *slog.Logger
}

func NewHandler(bids BidPlacer, history BidHistory, payouts PayoutRequester, ledger PayoutLister, logger *slog.Logger) *Handler {
	return &Handler{
		bids:    bids,
		history: history,
		payouts: payouts,
		ledger:  ledger,
		logger:  logger,
	}
}

func (h *Handler) Routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	router.HandleFunc("/auctions/{id}/bids", h.PlaceBid).Methods(http.MethodPost)
	router.HandleFunc("/auctions/{id}/bids", h.ListBids).Methods(http.MethodGet)
	router.HandleFunc("/payouts", h.RequestPayout).Methods(http.MethodPost)
	router.HandleFunc("/payouts", h.ListPayouts).Methods(http.MethodGet)

	router.Use(h.loggingMiddleware)

	return router
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["id"]

	var req struct {
		Amount     decimal.Decimal     `json:"amount"`
		AutoMaxBid decimal.NullDecimal `json:"autoMaxBid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.Validation("invalid request body"))
		return
	}

	bid, err := h.bids.PlaceBid(r.Context(), productID, r.Header.Get(userIDHeader), req.Amount, req.AutoMaxBid)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, bid)
}

func (h *Handler) ListBids(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["id"]

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	cursor := r.URL.Query().Get("cursor")
	if _, err := store.DecodeCursor(cursor); err != nil {
		h.respondError(w, apperr.Wrap(err, apperr.KindValidation, apperr.ReasonInvalidInput, "invalid cursor"))
		return
	}

	page, err := h.history.ListBidsCursor(r.Context(), productID, cursor, limit)
	if err != nil {
		h.respondError(w, apperr.Storage(err, "list bids"))
		return
	}

	h.respondJSON(w, http.StatusOK, page)
}

func (h *Handler) RequestPayout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentMethod string            `json:"paymentMethod"`
		MethodDetails map[string]string `json:"methodDetails"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.Validation("invalid request body"))
		return
	}

	payout, err := h.payouts.RequestPayout(r.Context(), r.Header.Get(userIDHeader), req.PaymentMethod, req.MethodDetails)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, payout)
}

func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	sellerID := r.Header.Get(userIDHeader)
	if sellerID == "" {
		h.respondError(w, apperr.Validation("%s header is required", userIDHeader))
		return
	}

	payouts, err := h.ledger.ListPayoutsForSeller(r.Context(), sellerID)
	if err != nil {
		h.respondError(w, apperr.Storage(err, "list payouts"))
		return
	}
	if payouts == nil {
		payouts = []models.Payout{}
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"items": payouts})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

// respondError exposes the reason code and message but never the wrapped
// storage error.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "status", status, "error", err)
	}

	message := "internal error"
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	h.respondJSON(w, status, map[string]string{
		"error":  message,
		"reason": string(apperr.ReasonOf(err)),
	})
}

func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}
