// Package engine implements the conversation state machine for the flower
// shop: the customer order flow and the admin catalog flow. Given an inbound
// event and the user's conversation state, it decides the next state, what to
// write to the stores, and which outbound messages to produce.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/erazemk/cvetlicarna/internal/session"
)

// Display limits, from the shop's historical behavior.
const (
	// MaxCatalogPage caps how many bouquets one listing shows.
	MaxCatalogPage = 10
	// MaxOrderList caps how many orders "my orders" shows.
	MaxOrderList = 10
	// MinAddressLen is the minimum delivery address length after trimming.
	MinAddressLen = 5
)

// Config wires an Engine's collaborators. Invoicer may be nil when no payment
// provider is configured; Notifier may be nil when order fan-out is disabled.
type Config struct {
	DB       *sql.DB
	Sessions session.Store
	Sender   Sender
	Invoicer Invoicer
	Notifier Notifier
	AdminIDs []int64
}

// Engine routes inbound events through an explicit (step, action) transition
// table. Events for one user must be handled one at a time; use Dispatcher.
type Engine struct {
	db       *sql.DB
	sessions session.Store
	sender   Sender
	invoicer Invoicer
	notifier Notifier
	admins   map[int64]bool

	transitions map[transitionKey]handlerFunc
}

type handlerFunc func(ctx context.Context, ev Event, st session.State) error

// transitionKey pairs a conversation step with an event action. anyStep rows
// apply regardless of the current step, but a step-specific row wins.
type transitionKey struct {
	step   session.Step
	action string
}

const anyStep session.Step = "*"

// New creates an Engine and builds its transition table.
func New(cfg Config) *Engine {
	e := &Engine{
		db:       cfg.DB,
		sessions: cfg.Sessions,
		sender:   cfg.Sender,
		invoicer: cfg.Invoicer,
		notifier: cfg.Notifier,
		admins:   make(map[int64]bool, len(cfg.AdminIDs)),
	}
	for _, id := range cfg.AdminIDs {
		e.admins[id] = true
	}

	e.transitions = map[transitionKey]handlerFunc{
		// Step-independent entry points.
		{anyStep, "start"}:        e.showMenu,
		{anyStep, selMenuCatalog}: e.showSizes,
		{anyStep, selMenuOrders}:  e.listOrders,
		{anyStep, selSize}:        e.browseSize,
		{anyStep, "payment"}:      e.paymentSucceeded,
		{anyStep, selMenuAdmin}:   e.adminMenu,
		{anyStep, selAdminAdd}:    e.adminAddStart,
		{anyStep, selAdminList}:   e.adminList,
		{anyStep, selAdminToggle}: e.adminToggle,

		// Order flow.
		{session.StepOrderNumber, selPick}:   e.pickBouquet,
		{session.StepOrderAddress, "text"}:   e.setAddress,
		{session.StepOrderTime, "text"}:      e.setDeliveryTime,
		{session.StepOrderPayment, selPay}:   e.paymentChoice,

		// Admin catalog flow.
		{session.StepAdminSize, selAdminSize}: e.adminSetSize,
		{session.StepAdminNumber, "text"}:     e.adminSetNumber,
		{session.StepAdminTitle, "text"}:      e.adminSetTitle,
		{session.StepAdminPrice, "text"}:      e.adminSetPrice,
		{session.StepAdminPhoto, "photo"}:     e.adminSetPhoto,
	}

	return e
}

// Handle processes one inbound event. It is not safe for concurrent calls
// with the same user id; the Dispatcher enforces per-user ordering.
//
// Errors are per-event and recoverable: the caller should log them, never
// crash. When a store operation fails the user gets a generic apology and
// the conversation state is left unchanged, so a retry is safe.
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	st, err := e.sessions.Get(ctx, ev.UserID)
	if err != nil {
		return e.apologize(ctx, ev.UserID, fmt.Errorf("loading session: %w", err))
	}

	action := actionFor(ev)
	if h, ok := e.transitions[transitionKey{st.Step, action}]; ok {
		return h(ctx, ev, st)
	}
	if h, ok := e.transitions[transitionKey{anyStep, action}]; ok {
		return h(ctx, ev, st)
	}
	return e.unhandled(ctx, ev, st)
}

// unhandled is the single deliberate default for (step, action) pairs with
// no table row: free text outside a flow gets the menu, everything else
// (stale buttons after a reset, photos outside the admin flow) is dropped.
func (e *Engine) unhandled(ctx context.Context, ev Event, st session.State) error {
	if ev.Type == EventText && st.Step == session.StepIdle {
		return e.showMenu(ctx, ev, st)
	}
	log.Printf("engine: dropping %s event from user %d in step %s", ev.Type, ev.UserID, st.Step)
	return nil
}

func (e *Engine) isAdmin(userID int64) bool {
	return e.admins[userID]
}

func (e *Engine) send(ctx context.Context, msg Message) error {
	if err := e.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending message to user %d: %w", msg.UserID, err)
	}
	return nil
}

// apologize tells the user something went wrong and returns the underlying
// error for logging. Conversation state is left as it was.
func (e *Engine) apologize(ctx context.Context, userID int64, err error) error {
	if sendErr := e.sender.Send(ctx, Message{
		UserID: userID,
		Text:   "Something went wrong on our side, please try again.",
	}); sendErr != nil {
		log.Printf("engine: apology to user %d failed: %v", userID, sendErr)
	}
	return err
}

// showMenu greets the user with the main menu. Conversation state is kept so
// a stray /start does not abandon an in-progress flow.
func (e *Engine) showMenu(ctx context.Context, ev Event, st session.State) error {
	choices := []Choice{
		{Label: "Catalog", Data: selMenuCatalog},
		{Label: "My orders", Data: selMenuOrders},
	}
	if e.isAdmin(ev.UserID) {
		choices = append(choices, Choice{Label: "Admin", Data: selMenuAdmin})
	}
	return e.send(ctx, Message{
		UserID:  ev.UserID,
		Text:    "Hi! This is the flower shop. Pick Catalog to browse bouquets.",
		Choices: choices,
	})
}
