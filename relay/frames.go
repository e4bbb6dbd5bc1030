package relay

import (
	"encoding/json"
	"fmt"

	"github.com/coracle-social/kgroups/event"
)

// Frame tags: wire frames are JSON arrays whose first element names the
// frame type.
const (
	FrameEvent  = "EVENT"
	FrameReq    = "REQ"
	FrameClose  = "CLOSE"
	FrameAuth   = "AUTH"
	FrameOK     = "OK"
	FrameEOSE   = "EOSE"
	FrameClosed = "CLOSED"
	FrameNotice = "NOTICE"
)

// ClientEvent is the client->relay ["EVENT", event] frame.
type ClientEvent struct {
	Event *event.Event
}

// ClientReq is the client->relay ["REQ", subId, filter, ...] frame;
// multiple filter objects may follow the subId, all OR'd together per
// NIP-01 convention.
type ClientReq struct {
	SubID   string
	Filters []*Filter
}

// ClientClose is the client->relay ["CLOSE", subId] frame.
type ClientClose struct {
	SubID string
}

// ClientAuth is the client->relay ["AUTH", event] frame, responding to a
// relay-issued challenge with a kind 22242 auth event.
type ClientAuth struct {
	Event *event.Event
}

// ParseClientFrame decodes a raw JSON array into one of the Client* frame
// types, dispatching on its first element.
func ParseClientFrame(raw []byte) (any, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("relay: malformed frame: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("relay: empty frame")
	}
	var tag string
	if err := json.Unmarshal(parts[0], &tag); err != nil {
		return nil, fmt.Errorf("relay: frame missing type tag: %w", err)
	}
	switch tag {
	case FrameEvent:
		if len(parts) < 2 {
			return nil, fmt.Errorf("relay: EVENT frame missing event")
		}
		var evt event.Event
		if err := json.Unmarshal(parts[1], &evt); err != nil {
			return nil, fmt.Errorf("relay: decode EVENT payload: %w", err)
		}
		return &ClientEvent{Event: &evt}, nil
	case FrameReq:
		if len(parts) < 2 {
			return nil, fmt.Errorf("relay: REQ frame missing subId")
		}
		var subID string
		if err := json.Unmarshal(parts[1], &subID); err != nil {
			return nil, fmt.Errorf("relay: decode REQ subId: %w", err)
		}
		req := &ClientReq{SubID: subID}
		for _, raw := range parts[2:] {
			var f Filter
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, fmt.Errorf("relay: decode REQ filter: %w", err)
			}
			req.Filters = append(req.Filters, &f)
		}
		return req, nil
	case FrameClose:
		if len(parts) < 2 {
			return nil, fmt.Errorf("relay: CLOSE frame missing subId")
		}
		var subID string
		if err := json.Unmarshal(parts[1], &subID); err != nil {
			return nil, fmt.Errorf("relay: decode CLOSE subId: %w", err)
		}
		return &ClientClose{SubID: subID}, nil
	case FrameAuth:
		if len(parts) < 2 {
			return nil, fmt.Errorf("relay: AUTH frame missing event")
		}
		var evt event.Event
		if err := json.Unmarshal(parts[1], &evt); err != nil {
			return nil, fmt.Errorf("relay: decode AUTH payload: %w", err)
		}
		return &ClientAuth{Event: &evt}, nil
	default:
		return nil, fmt.Errorf("relay: unknown frame type %q", tag)
	}
}

// EncodeOK builds the relay->client ["OK", eventId, bool, message] frame.
func EncodeOK(eventID string, ok bool, message string) ([]byte, error) {
	return json.Marshal([]any{FrameOK, eventID, ok, message})
}

// EncodeEvent builds the relay->client ["EVENT", subId, event] frame.
func EncodeEvent(subID string, evt *event.Event) ([]byte, error) {
	return json.Marshal([]any{FrameEvent, subID, evt})
}

// EncodeEOSE builds the relay->client ["EOSE", subId] frame.
func EncodeEOSE(subID string) ([]byte, error) {
	return json.Marshal([]any{FrameEOSE, subID})
}

// EncodeClosed builds the relay->client ["CLOSED", subId, reason] frame.
func EncodeClosed(subID, reason string) ([]byte, error) {
	return json.Marshal([]any{FrameClosed, subID, reason})
}

// EncodeNotice builds the relay->client ["NOTICE", text] frame, used for
// unknown event kinds: an unrecognized kind gets a NOTICE, not a
// disconnect.
func EncodeNotice(text string) ([]byte, error) {
	return json.Marshal([]any{FrameNotice, text})
}

// EncodeAuthChallenge builds the relay->client ["AUTH", challenge] frame.
func EncodeAuthChallenge(challenge string) ([]byte, error) {
	return json.Marshal([]any{FrameAuth, challenge})
}
