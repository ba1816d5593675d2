package engine

import (
	"context"
	"strings"

	"github.com/erazemk/cvetlicarna/internal/model"
)

// EventType classifies inbound events. The transport connector parses raw
// payloads; the engine only sees these.
type EventType string

// Event types.
const (
	EventText             EventType = "text"
	EventSelection        EventType = "selection"
	EventPhoto            EventType = "photo"
	EventPaymentSucceeded EventType = "payment_succeeded"
)

// Event is one parsed inbound event. Payload holds the message text, the
// selection data of an activated choice, or a photo file reference.
type Event struct {
	Type    EventType `json:"type"`
	UserID  int64     `json:"user_id"`
	Payload string    `json:"payload,omitempty"`
}

// Choice is a label the connector renders plus the selection payload it
// raises when activated.
type Choice struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Message is one outbound message directive. Rendering is the connector's
// job; Alert hints that a transient popup is enough.
type Message struct {
	UserID  int64    `json:"user_id"`
	Text    string   `json:"text"`
	Alert   bool     `json:"alert,omitempty"`
	Choices []Choice `json:"choices,omitempty"`
}

// Sender delivers outbound messages to the chat transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Invoicer requests a payment invoice from the external provider. Success is
// observed only through a later payment_succeeded event for the same user.
type Invoicer interface {
	RequestInvoice(ctx context.Context, userID int64, title string, amount int64, description string) error
}

// Notifier receives created orders for downstream fan-out. Failures are
// logged and never affect the flow.
type Notifier interface {
	OrderCreated(ctx context.Context, order *model.Order) error
}

// Selection payloads. Multi-part payloads carry an argument after the prefix,
// e.g. "size:small" or "pick:3".
const (
	selMenuCatalog = "menu:catalog"
	selMenuOrders  = "menu:orders"
	selMenuAdmin   = "menu:admin"
	selAdminAdd    = "admin:add"
	selAdminList   = "admin:list"
	selAdminToggle = "admin:toggle"
	selAdminSize   = "admin:size"
	selSize        = "size"
	selPick        = "pick"
	selPay         = "pay"
)

// Payment choices within the "pay" selection.
const (
	payBack    = "pay:back"
	payConfirm = "pay:test"
	payInvoice = "pay:invoice"
)

// selectionActions lists recognized selection payload prefixes. Longer,
// more specific entries come first.
var selectionActions = []string{
	selMenuCatalog, selMenuOrders, selMenuAdmin,
	selAdminAdd, selAdminList, selAdminToggle, selAdminSize,
	selSize, selPick, selPay,
}

// actionFor maps an event to its transition-table action.
func actionFor(ev Event) string {
	switch ev.Type {
	case EventPaymentSucceeded:
		return "payment"
	case EventPhoto:
		return "photo"
	case EventText:
		text := strings.TrimSpace(ev.Payload)
		if text == "/start" {
			return "start"
		}
		if strings.HasPrefix(text, "/toggle") {
			return selAdminToggle
		}
		return "text"
	case EventSelection:
		for _, action := range selectionActions {
			if ev.Payload == action || strings.HasPrefix(ev.Payload, action+":") {
				return action
			}
		}
	}
	return ""
}

// selectionArg returns the argument part of a multi-part selection payload,
// e.g. selectionArg("size:small", selSize) == "small".
func selectionArg(payload, action string) string {
	return strings.TrimPrefix(payload, action+":")
}
