package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/asquebay/cantine-order-service/internal/model"
	"github.com/asquebay/cantine-order-service/internal/repository/postgres"
)

// CommandeProvider определяет интерфейс сервиса заказов со стороны HTTP
// это позволяет хэндлеру не зависеть от конкретной реализации сервиса
type CommandeProvider interface {
	Create(ctx context.Context, commande model.Commande) (model.Commande, error)
	Update(ctx context.Context, commande model.Commande) (model.Commande, error)
	Read(ctx context.Context, clientDate string) (model.Commande, error)
	FetchAll(ctx context.Context) ([]model.Commande, error)
	Delete(ctx context.Context, commande model.Commande) error
}

// EventStreamer определяет интерфейс композера живой ленты
type EventStreamer interface {
	Stream(ctx context.Context) <-chan model.EntityCrudAction
}

// Handler обрабатывает HTTP-запросы
type Handler struct {
	service  CommandeProvider
	streamer EventStreamer
	log      *slog.Logger
	mux      *http.ServeMux
}

// NewHandler создает новый экземпляр Handler
func NewHandler(service CommandeProvider, streamer EventStreamer, log *slog.Logger) *Handler {
	h := &Handler{
		service:  service,
		streamer: streamer,
		log:      log,
		mux:      http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP делает Handler совместимым с http.Handler
// перед роутингом выставляются CORS-заголовки: API открыт для любого origin,
// как и в остальных наших фронтовых сервисах
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.mux.ServeHTTP(w, r)
}

// registerRoutes регистрирует все эндпоинты
func (h *Handler) registerRoutes() {
	// точный сегмент message имеет приоритет над шаблоном {client_date}
	h.mux.HandleFunc("GET /api/commande/message", h.streamCommandes)

	h.mux.HandleFunc("GET /api/commande", h.fetchCommandes)
	h.mux.HandleFunc("GET /api/commande/{client_date}", h.readCommande)
	h.mux.HandleFunc("POST /api/commande", h.createCommande)
	h.mux.HandleFunc("PUT /api/commande", h.updateCommande)
	h.mux.HandleFunc("DELETE /api/commande", h.deleteCommande)
}

func (h *Handler) fetchCommandes(w http.ResponseWriter, r *http.Request) {
	commandes, err := h.service.FetchAll(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, commandes)
}

func (h *Handler) readCommande(w http.ResponseWriter, r *http.Request) {
	clientDate := r.PathValue("client_date")
	if clientDate == "" {
		h.respondError(w, http.StatusBadRequest, "client_date is required")
		return
	}

	commande, err := h.service.Read(r.Context(), clientDate)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, commande)
}

func (h *Handler) createCommande(w http.ResponseWriter, r *http.Request) {
	commande, ok := h.decodeCommande(w, r)
	if !ok {
		return
	}

	stored, err := h.service.Create(r.Context(), commande)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, stored)
}

func (h *Handler) updateCommande(w http.ResponseWriter, r *http.Request) {
	commande, ok := h.decodeCommande(w, r)
	if !ok {
		return
	}

	stored, err := h.service.Update(r.Context(), commande)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, stored)
}

func (h *Handler) deleteCommande(w http.ResponseWriter, r *http.Request) {
	var commande model.Commande
	if err := json.NewDecoder(r.Body).Decode(&commande); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.Delete(r.Context(), commande); err != nil {
		h.respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeCommande разбирает и валидирует тело запроса
func (h *Handler) decodeCommande(w http.ResponseWriter, r *http.Request) (model.Commande, bool) {
	var commande model.Commande
	if err := json.NewDecoder(r.Body).Decode(&commande); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return model.Commande{}, false
	}

	if err := commande.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return model.Commande{}, false
	}

	return commande, true
}

// respondServiceError переводит типизированные ошибки сервиса в HTTP-статусы
// конфликт, отсутствие записи и внутренняя ошибка различимы для клиента
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, postgres.ErrCommandeNotFound):
		h.respondError(w, http.StatusNotFound, "commande not found")
	case errors.Is(err, postgres.ErrCommandeConflict):
		h.respondError(w, http.StatusConflict, "commande conflict")
	default:
		h.log.Error("internal server error", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("failed to marshal JSON response", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(response)
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
