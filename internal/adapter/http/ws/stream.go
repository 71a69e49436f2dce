// Package wshandler exposes the event bus over WebSocket. A trip
// subscriber gets a snapshot of the trip followed by live deltas; a
// driver subscriber gets their pending offers followed by new ones.
package wshandler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/service/trip"
	"github.com/safarigo/ridehail/internal/stream"
	"github.com/safarigo/ridehail/pkg/logger"
	wrap "github.com/safarigo/ridehail/pkg/logger/wrapper"
)

const (
	writeWait    = 5 * time.Second
	pingInterval = 30 * time.Second
)

type StreamService interface {
	GetTrip(ctx context.Context, p models.Principal, tripID string) (trip.TripView, error)
	DriverDashboard(ctx context.Context, p models.Principal) (trip.Dashboard, error)
}

type Stream struct {
	bus     *stream.Bus
	service StreamService
	l       logger.Logger

	upgrader websocket.Upgrader
}

func NewStream(bus *stream.Bus, service StreamService, l logger.Logger) *Stream {
	return &Stream{
		bus:     bus,
		service: service,
		l:       l,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// TripStream godoc
// @Summary      Live trip updates
// @Description  Upgrades to WebSocket and streams trip state changes and driver positions
// @Tags         Streaming
// @Param        trip_id  path  string  true  "Trip ID"
// @Success      101
// @Security     BearerAuth
// @Router       /v1/ws/trips/{trip_id} [get]
func (h *Stream) TripStream(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "ws_trip_stream")
	tripID := r.PathValue("trip_id")

	p, _ := models.PrincipalFromContext(r.Context())
	view, err := h.service.GetTrip(ctx, p, tripID)
	if err != nil {
		h.l.Warn(ctx, "trip stream rejected", "trip_id", tripID, "error", err.Error())
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "websocket upgrade failed", err)
		return
	}

	sub := h.bus.Subscribe(stream.TripTopic(tripID))

	snapshot := view.Trip
	first := stream.Event{Type: stream.EventTripUpdated, Trip: &snapshot}

	h.l.Info(ctx, "trip stream opened", "trip_id", tripID)
	h.pump(ctx, conn, sub, first)
	h.l.Info(ctx, "trip stream closed", "trip_id", tripID)
}

// DriverStream godoc
// @Summary      Live dispatch offers
// @Description  Upgrades to WebSocket and streams dispatch offers for the authenticated driver
// @Tags         Streaming
// @Success      101
// @Security     BearerAuth
// @Router       /v1/ws/drivers [get]
func (h *Stream) DriverStream(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "ws_driver_stream")

	p, _ := models.PrincipalFromContext(r.Context())
	dash, err := h.service.DriverDashboard(ctx, p)
	if err != nil {
		h.l.Warn(ctx, "driver stream rejected", "error", err.Error())
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "websocket upgrade failed", err)
		return
	}

	driverID := dash.Profile.DriverID
	sub := h.bus.Subscribe(stream.DriverTopic(driverID))

	pending := make([]stream.Event, 0, len(dash.PendingRequests))
	for i := range dash.PendingRequests {
		offer := dash.PendingRequests[i]
		pending = append(pending, stream.Event{Type: stream.EventDriverOffer, Offer: &offer})
	}

	h.l.Info(ctx, "driver stream opened", "driver_id", driverID)
	h.pump(ctx, conn, sub, pending...)
	h.l.Info(ctx, "driver stream closed", "driver_id", driverID)
}

// pump writes the snapshot events, then forwards bus events until the
// peer hangs up or the subscription closes. The read side is drained
// only to notice disconnects; inbound frames carry no commands.
func (h *Stream) pump(ctx context.Context, conn *websocket.Conn, sub *stream.Subscription, snapshot ...stream.Event) {
	defer sub.Close()
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, ev := range snapshot {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub.C:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream closed"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.l.Debug(ctx, "websocket write failed", "error", err.Error())
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
