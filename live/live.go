package live

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"storefront/models"
	"storefront/utils"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Subscriber interface {
	Subscribe(ctx context.Context, orderID string) (<-chan models.OrderEvent, func(), error)
}

type OrderReader interface {
	GetOrder(ctx context.Context, id string) (models.Order, error)
}

type Handler struct {
	orders   OrderReader
	events   Subscriber
	upgrader websocket.Upgrader
}

// NewHandler accepts upgrades from the given origins; an empty list allows any.
func NewHandler(orders OrderReader, events Subscriber, origins ...string) *Handler {
	h := &Handler{orders: orders, events: events}
	h.upgrader.CheckOrigin = func(r *http.Request) bool {
		if len(origins) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, o := range origins {
			if o == origin {
				return true
			}
		}
		return false
	}
	return h
}

func terminal(status string) bool {
	return status == models.OrderPaid || status == models.OrderFailed
}

// GET /api/orders/:id/ws
func (h *Handler) OrderStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// subscribe before reading so a transition landing in between is not missed
	events, unsubscribe, err := h.events.Subscribe(ctx, id)
	if err != nil {
		log.Printf("OrderStatus %s: subscribe: %v", id, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer unsubscribe()

	order, err := h.orders.GetOrder(r.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		log.Printf("OrderStatus %s: %v", id, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("OrderStatus %s: upgrade: %v", id, err)
		return
	}
	defer conn.Close()

	send := func(status string) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(models.OrderEvent{OrderID: id, Status: status, At: time.Now()})
	}
	closeNormal := func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	}

	if err := send(order.Status); err != nil || terminal(order.Status) {
		closeNormal()
		return
	}

	// the reader only drains control frames and notices the client leaving
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				closeNormal()
				return
			}
			if err := send(ev.Status); err != nil {
				return
			}
			if terminal(ev.Status) {
				closeNormal()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
