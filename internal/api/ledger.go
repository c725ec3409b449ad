package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	model "github.com/glkeru/loyalty/ledger/internal/models"
	service "github.com/glkeru/loyalty/ledger/internal/services"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type LedgerHandler struct {
	router  *mux.Router
	service *service.LedgerService
	logger  *zap.Logger
}

type AddRequest struct {
	Payer     *string    `json:"payer"`
	Points    *int64     `json:"points"`
	Timestamp *time.Time `json:"timestamp"`
}

type SpendRequest struct {
	Points *int64 `json:"points"`
}

func NewHandler(serv *service.LedgerService, logger *zap.Logger) *LedgerHandler {
	router := mux.NewRouter()
	handler := &LedgerHandler{router, serv, logger}
	router.Use(MiddlewareRequestID(logger), MiddlewareMetrics())
	router.HandleFunc("/add", handler.AddHandler).Methods(http.MethodPost)
	router.HandleFunc("/spend", handler.SpendHandler).Methods(http.MethodPost)
	router.HandleFunc("/balance", handler.BalanceHandler).Methods(http.MethodGet)
	router.HandleFunc("/balance/{payer}", handler.PayerBalanceHandler).Methods(http.MethodGet)
	router.HandleFunc("/reset", handler.ResetHandler).Methods(http.MethodDelete)
	router.HandleFunc("/view", handler.ViewHandler).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return handler
}

func (h *LedgerHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.router.ServeHTTP(w, req)
}

func (h *LedgerHandler) Log(msg string, service string, err error) {
	h.logger.Error(msg,
		zap.String("service", service),
		zap.Error(err),
	)
}

// Ответ с ошибкой: ошибки запроса - 400, внутренние - 500
func (h *LedgerHandler) fail(w http.ResponseWriter, service string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrInsufficientPoints):
		http.Error(w, "ERROR: "+err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, "ERROR: "+err.Error(), http.StatusNotFound)
	default:
		h.Log("Ledger", service, err)
		http.Error(w, "ERROR: "+err.Error(), http.StatusInternalServerError)
	}
}

func (h *LedgerHandler) writeJSON(w http.ResponseWriter, service string, v any) {
	j, err := json.Marshal(v)
	if err != nil {
		h.Log("Marshal", service, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(j)
}

// Начисление (points > 0) или корректировка (points < 0)
func (h *LedgerHandler) AddHandler(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()
	add := &AddRequest{}
	if err := json.NewDecoder(req.Body).Decode(add); err != nil {
		http.Error(w, "ERROR: Invalid request format", http.StatusBadRequest)
		return
	}
	switch {
	case add.Payer == nil:
		http.Error(w, "ERROR: Missing required field: payer", http.StatusBadRequest)
		return
	case add.Points == nil:
		http.Error(w, "ERROR: Missing required field: points", http.StatusBadRequest)
		return
	case add.Timestamp == nil:
		http.Error(w, "ERROR: Missing required field: timestamp", http.StatusBadRequest)
		return
	}

	err := h.service.Add(req.Context(), *add.Payer, *add.Points, *add.Timestamp)
	if err != nil {
		h.fail(w, "AddHandler", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Списание баллов
func (h *LedgerHandler) SpendHandler(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()
	spend := &SpendRequest{}
	if err := json.NewDecoder(req.Body).Decode(spend); err != nil {
		http.Error(w, "ERROR: Invalid request format", http.StatusBadRequest)
		return
	}
	if spend.Points == nil {
		http.Error(w, "ERROR: Missing required field: points", http.StatusBadRequest)
		return
	}

	result, err := h.service.Spend(req.Context(), *spend.Points)
	if err != nil {
		h.fail(w, "SpendHandler", err)
		return
	}
	h.writeJSON(w, "SpendHandler", result.Entries())
}

// Балансы всех плательщиков
func (h *LedgerHandler) BalanceHandler(w http.ResponseWriter, req *http.Request) {
	balances, err := h.service.Balance(req.Context())
	if err != nil {
		h.fail(w, "BalanceHandler", err)
		return
	}
	h.writeJSON(w, "BalanceHandler", balances)
}

// Баланс одного плательщика
func (h *LedgerHandler) PayerBalanceHandler(w http.ResponseWriter, req *http.Request) {
	payer := mux.Vars(req)["payer"]
	points, err := h.service.PayerBalance(req.Context(), payer)
	if err != nil {
		h.fail(w, "PayerBalanceHandler", err)
		return
	}
	h.writeJSON(w, "PayerBalanceHandler", model.PayerPoints{Payer: payer, Points: points})
}

func (h *LedgerHandler) ResetHandler(w http.ResponseWriter, req *http.Request) {
	if err := h.service.Reset(req.Context()); err != nil {
		h.fail(w, "ResetHandler", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ledger successfully reset"))
}

// Все лоты
func (h *LedgerHandler) ViewHandler(w http.ResponseWriter, req *http.Request) {
	lots, err := h.service.View(req.Context())
	if err != nil {
		h.fail(w, "ViewHandler", err)
		return
	}
	if lots == nil {
		lots = []model.Lot{}
	}
	h.writeJSON(w, "ViewHandler", lots)
}
