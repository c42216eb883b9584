package kitchen

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/appetiteclub/kds/internal/logger"
	"github.com/appetiteclub/kds/internal/web"
	"github.com/appetiteclub/kds/pkg/enums/ticketstate"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const MaxBodyBytes = 1 << 20

type HandlerDeps struct {
	Service TicketService
	Archive TicketArchive
}

type Handler struct {
	service TicketService
	archive TicketArchive
	logger  logger.Logger
}

func NewHandler(deps HandlerDeps, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNoop()
	}
	return &Handler{
		service: deps.Service,
		archive: deps.Archive,
		logger:  log.With("component", "handler"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", h.ListTickets)
		r.Post("/", h.PlaceOrder)
		r.Get("/{id}", h.GetTicket)
		r.Patch("/{id}/serve", h.ServeTicket)
		r.Patch("/{id}/cancel", h.CancelTicket)
	})
	r.Get("/stats", h.GetStats)
	r.Get("/board", h.GetBoard)
	r.Get("/history", h.ListHistory)
}

func (h *Handler) log(r *http.Request) logger.Logger {
	return h.logger.With("request_id", middleware.GetReqID(r.Context()))
}

type placeOrderRequest struct {
	TableNumber  int    `json:"table_number"`
	CustomerName string `json:"customer_name"`
	Items        []struct {
		Name               string  `json:"name"`
		Quantity           int     `json:"quantity"`
		PreparationMinutes float64 `json:"preparation_minutes"`
		Station            string  `json:"station"`
	} `json:"items"`
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		web.RespondError(w, http.StatusBadRequest, "Could not read request body")
		return
	}

	var req placeOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	items := make([]LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, LineItem{
			Name:               item.Name,
			Quantity:           item.Quantity,
			PreparationMinutes: item.PreparationMinutes,
			Station:            item.Station,
		})
	}

	label := Label{TableNumber: req.TableNumber, CustomerName: req.CustomerName}
	id, err := h.service.PlaceOrder(label, items)
	if err != nil {
		log.Info("order rejected", "label", label.String(), "error", err)
		h.respondServiceError(w, err)
		return
	}

	web.Respond(w, http.StatusCreated, map[string]interface{}{
		"id": id.String(),
	}, nil)
}

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	tickets := h.service.ListOpenTickets()

	if tierName := r.URL.Query().Get("tier"); tierName != "" {
		filtered := make([]TicketView, 0, len(tickets))
		for _, view := range tickets {
			if view.Evaluation.Tier.Code() == tierName {
				filtered = append(filtered, view)
			}
		}
		tickets = filtered
	}

	web.Respond(w, http.StatusOK, map[string]interface{}{
		"tickets": tickets,
	}, map[string]interface{}{
		"count": len(tickets),
	})
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTicketID(w, r)
	if !ok {
		return
	}

	view, err := h.service.Ticket(id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	web.Respond(w, http.StatusOK, view, nil)
}

func (h *Handler) ServeTicket(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	id, ok := parseTicketID(w, r)
	if !ok {
		return
	}

	ticket, err := h.service.MarkServed(id)
	if err != nil {
		log.Info("cannot serve ticket", "ticket_id", id, "error", err)
		h.respondServiceError(w, err)
		return
	}

	web.Respond(w, http.StatusOK, ticket, nil)
}

func (h *Handler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	id, ok := parseTicketID(w, r)
	if !ok {
		return
	}

	ticket, err := h.service.CancelOrder(id)
	if err != nil {
		log.Info("cannot cancel ticket", "ticket_id", id, "error", err)
		h.respondServiceError(w, err)
		return
	}

	web.Respond(w, http.StatusOK, ticket, nil)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	web.Respond(w, http.StatusOK, h.service.GetStats(), nil)
}

func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	web.Respond(w, http.StatusOK, h.service.Board(), nil)
}

// ListHistory queries archived tickets: ?from=&to= (RFC3339), ?state=, ?limit=.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	if h.archive == nil {
		web.RespondError(w, http.StatusServiceUnavailable, "History is not available")
		return
	}

	filter := ArchiveFilter{Limit: 100}
	q := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			web.RespondError(w, http.StatusBadRequest, "Invalid "+p.name+" timestamp")
			return
		}
		*p.dst = &ts
	}

	if state := q.Get("state"); state != "" {
		s := ticketstate.ByName(state)
		if s == nil || !s.Terminal() {
			web.RespondError(w, http.StatusBadRequest, "Invalid state")
			return
		}
		filter.State = s.Code()
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			web.RespondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	tickets, err := h.archive.List(r.Context(), filter)
	if err != nil {
		log.Errorf("cannot list archived tickets: %v", err)
		web.RespondError(w, http.StatusInternalServerError, "Could not list history")
		return
	}

	web.Respond(w, http.StatusOK, map[string]interface{}{
		"tickets": tickets,
	}, map[string]interface{}{
		"count": len(tickets),
	})
}

func parseTicketID(w http.ResponseWriter, r *http.Request) (TicketID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		web.RespondError(w, http.StatusBadRequest, "Invalid ticket ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		web.RespondError(w, http.StatusNotFound, "Ticket not found")
	case errors.Is(err, ErrDuplicateID):
		web.RespondError(w, http.StatusConflict, "Cannot add ticket: duplicate order")
	case errors.Is(err, ErrQueueFull):
		web.RespondError(w, http.StatusConflict, "Cannot add ticket: queue is full")
	case errors.Is(err, ErrInvalidTicket):
		web.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Errorf("unexpected ticket service error: %v", err)
		web.RespondError(w, http.StatusInternalServerError, "Internal error")
	}
}
