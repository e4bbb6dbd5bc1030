// Dispatch wires one connection's frame stream to Core.Admit: decode wire
// frame -> validate/derive the domain event -> apply against state ->
// report outcome. Here the "outcome" is an OK frame rather than a return
// value: per-event failures are reported in the OK frame and the
// connection stays open.
package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coracle-social/kgroups/event"
	"github.com/coracle-social/kgroups/internal/apperr"
)

// Dispatcher drives a single connection's frames against a shared Core.
type Dispatcher struct {
	core *Core
	conn *Conn
	log  *slog.Logger
}

// NewDispatcher returns a dispatcher bound to one connection.
func NewDispatcher(core *Core, conn *Conn, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{core: core, conn: conn, log: log}
}

// Serve reads frames from conn until it errors or closes, dispatching each
// one. Callers run Serve in its own goroutine per connection.
func (d *Dispatcher) Serve() {
	defer d.core.hub.UnsubscribeConn(d.conn.ID)
	for {
		raw, err := d.conn.ReadFrame()
		if err != nil {
			return
		}
		d.dispatchFrame(raw)
	}
}

func (d *Dispatcher) dispatchFrame(raw []byte) {
	frame, err := ParseClientFrame(raw)
	if err != nil {
		d.notice(err.Error())
		return
	}
	switch f := frame.(type) {
	case *ClientEvent:
		d.handleEvent(f.Event, len(raw))
	case *ClientReq:
		d.handleReq(f)
	case *ClientClose:
		d.core.hub.Unsubscribe(d.conn.ID, f.SubID)
	case *ClientAuth:
		d.handleAuth(f.Event)
	}
}

func (d *Dispatcher) handleEvent(evt *event.Event, wireSize int) {
	if !isKnownKind(evt.Kind) {
		d.notice(fmt.Sprintf("unknown event kind %d", evt.Kind))
		return
	}
	dup := d.core.Seen(evt.ID)
	err := d.core.Admit(evt, wireSize, time.Now())
	if err != nil {
		d.ok(evt.ID, false, err.Error())
		var kind apperr.Kind
		var kindErr *apperr.Error
		if errors.As(err, &kindErr) {
			kind = kindErr.Kind
		}
		d.log.Warn("event rejected", "event_id", evt.ID, "kind", evt.Kind, "error", err, "apperr_kind", kind)
		return
	}
	d.ok(evt.ID, true, "")
	if !dup {
		d.core.hub.Broadcast(evt)
	}
}

func (d *Dispatcher) handleReq(req *ClientReq) {
	hub := d.core.hub
	if !hub.Has(d.conn.ID, req.SubID) && hub.CountConn(d.conn.ID) >= d.core.cfg.MaxSubscriptions {
		if frame, err := EncodeClosed(req.SubID, "blocked: too many subscriptions"); err == nil {
			_ = d.conn.WriteFrame(frame)
		}
		return
	}
	hub.Subscribe(&Subscription{
		ConnID:  d.conn.ID,
		SubID:   req.SubID,
		Filters: req.Filters,
		Deliver: func(evt *event.Event) error {
			frame, err := EncodeEvent(req.SubID, evt)
			if err != nil {
				return err
			}
			return d.conn.WriteFrame(frame)
		},
	})
	eose, err := EncodeEOSE(req.SubID)
	if err == nil {
		_ = d.conn.WriteFrame(eose)
	}
}

func (d *Dispatcher) handleAuth(evt *event.Event) {
	if evt.Kind != KindRelayAuth {
		d.ok(evt.ID, false, fmt.Sprintf("invalid: auth event must be kind %d", KindRelayAuth))
		return
	}
	if err := evt.Verify(); err != nil {
		d.ok(evt.ID, false, "invalid: bad signature")
		return
	}
	if _, ok := evt.Tags.GetValue("relay"); !ok {
		d.ok(evt.ID, false, "invalid: missing relay tag")
		return
	}
	if _, ok := evt.Tags.GetValue("challenge"); !ok {
		d.ok(evt.ID, false, "invalid: missing challenge tag")
		return
	}
	d.core.MarkAuthenticated(evt.Pubkey)
	d.ok(evt.ID, true, "")
}

func (d *Dispatcher) ok(eventID string, accepted bool, message string) {
	frame, err := EncodeOK(eventID, accepted, message)
	if err != nil {
		return
	}
	_ = d.conn.WriteFrame(frame)
}

func (d *Dispatcher) notice(text string) {
	frame, err := EncodeNotice(text)
	if err != nil {
		return
	}
	_ = d.conn.WriteFrame(frame)
}
