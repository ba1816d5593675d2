package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/erazemk/cvetlicarna/internal/model"
	"github.com/erazemk/cvetlicarna/internal/session"
	"github.com/erazemk/cvetlicarna/internal/store"
)

// Scratch keys used by the admin catalog flow.
const (
	keyAdminNumber = "number"
	keyAdminTitle  = "title"
	keyAdminPrice  = "admin_price"
)

// Admin entry points never respond to non-privileged users: no error message,
// no state change, nothing that confirms the admin surface exists.

func (e *Engine) adminMenu(ctx context.Context, ev Event, st session.State) error {
	if !e.isAdmin(ev.UserID) {
		return nil
	}
	return e.send(ctx, Message{
		UserID: ev.UserID,
		Text:   "Admin panel:",
		Choices: []Choice{
			{Label: "Add bouquet", Data: selAdminAdd},
			{Label: "List bouquets", Data: selAdminList},
			{Label: "Back to menu", Data: selMenuCatalog},
		},
	})
}

func (e *Engine) adminAddStart(ctx context.Context, ev Event, st session.State) error {
	if !e.isAdmin(ev.UserID) {
		return nil
	}
	if err := e.sessions.Put(ctx, ev.UserID, session.State{Step: session.StepAdminSize}); err != nil {
		return e.apologize(ctx, ev.UserID, fmt.Errorf("storing session: %w", err))
	}

	choices := make([]Choice, 0, len(model.Sizes))
	for _, s := range model.Sizes {
		choices = append(choices, Choice{Label: model.SizeName(s), Data: selAdminSize + ":" + s})
	}
	return e.send(ctx, Message{
		UserID:  ev.UserID,
		Text:    "Choose the new bouquet's size:",
		Choices: choices,
	})
}

func (e *Engine) adminSetSize(ctx context.Context, ev Event, st session.State) error {
	if !e.isAdmin(ev.UserID) {
		return nil
	}
	size := selectionArg(ev.Payload, selAdminSize)
	if !model.ValidSize(size) {
		log.Printf("engine: admin %d selected unknown size %q", ev.UserID, size)
		return nil
	}

	st.Step = session.StepAdminNumber
	st.Set(keySize, size)
	if err := e.sessions.Put(ctx, ev.UserID, st); err != nil {
		return e.apologize(ctx, ev.UserID, fmt.Errorf("storing session: %w", err))
	}
	return e.send(ctx, Message{UserID: ev.UserID, Text: "Send the bouquet number (an integer):"})
}

func (e *Engine) adminSetNumber(ctx context.Context, ev Event, st session.State) error {
	if !e.isAdmin(ev.UserID) {
		return nil
	}
	number, err := strconv.Atoi(strings.TrimSpace(ev.Payload))
	if err != nil || number <= 0 {
		return e.send(ctx, Message{UserID: ev.UserID, Text: "Send the number in digits."})
	}

	st.Step = session.StepAdminTitle
	st.Set(keyAdminNumber, strconv.Itoa(number))
	if err := e.sessions.Put(ctx, ev.UserID, st); err != nil {
		return e.apologize(ctx, ev.UserID, fmt.Errorf("storing session: %w", err))
	}
	return e.send(ctx, Message{UserID: ev.UserID, Text: "Send a short title for the bouquet:"})
}

func (e *Engine) adminSetTitle(ctx context.Context, ev Event, st session.State) error {
	if !e.isAdmin(ev.UserID) {
		return nil
	}
	title := strings.TrimSpace(ev.Payload)
	if title == "" {
		return e.send(ctx, Message{UserID: ev.UserID, Text: "The title cannot be empty."})
	}

	st.Step = session.StepAdminPrice
	st.Set(keyAdminTitle, title)
	if err := e.sessions.Put(ctx, ev.UserID, st); err != nil {
		return e.apologize(ctx, ev.UserID, fmt.Errorf("storing session: %w", err))
	}
	return e.send(ctx, Message{UserID: ev.UserID, Text: "Send the price in $ (a whole number):"})
}

func (e *Engine) adminSetPrice(ctx context.Context, ev Event, st session.State) error {
	if !e.isAdmin(ev.UserID) {
		return nil
	}
	price, err := strconv.ParseInt(strings.TrimSpace(ev.Payload), 10, 64)
	if err != nil || price < 0 {
		return e.send(ctx, Message{UserID: ev.UserID, Text: "Send the price as a whole number of dollars."})
	}

	st.Step = session.StepAdminPhoto
	st.Set(keyAdminPrice, strconv.FormatInt(price, 10))
	if err := e.sessions.Put(ctx, ev.UserID, st); err != nil {
		return e.apologize(ctx, ev.UserID, fmt.Errorf("storing session: %w", err))
	}
	return e.send(ctx, Message{UserID: ev.UserID, Text: "Send one photo of the bouquet:"})
}

// adminSetPhoto completes the flow: the photo reference is the last field, so
// the catalog insert happens here. A duplicate (size, number) resets the flow
// without leaving a half-created entry.
func (e *Engine) adminSetPhoto(ctx context.Context, ev Event, st session.State) error {
	if !e.isAdmin(ev.UserID) {
		return nil
	}
	fileID := strings.TrimSpace(ev.Payload)
	if fileID == "" {
		return e.send(ctx, Message{UserID: ev.UserID, Text: "Send one photo of the bouquet:"})
	}

	number, err := strconv.Atoi(st.Get(keyAdminNumber))
	if err != nil {
		return e.apologize(ctx, ev.UserID, fmt.Errorf("corrupt number in scratch: %w", err))
	}
	price, err := strconv.ParseInt(st.Get(keyAdminPrice), 10, 64)
	if err != nil {
		return e.apologize(ctx, ev.UserID, fmt.Errorf("corrupt price in scratch: %w", err))
	}

	_, err = store.InsertBouquet(ctx, e.db, st.Get(keySize), number, st.Get(keyAdminTitle), price, fileID)
	if errors.Is(err, store.ErrDuplicate) {
		if err := e.sessions.Clear(ctx, ev.UserID); err != nil {
			return e.apologize(ctx, ev.UserID, fmt.Errorf("resetting session: %w", err))
		}
		return e.send(ctx, Message{
			UserID: ev.UserID,
			Text:   "A bouquet with that number already exists in this size.",
		})
	}
	if err != nil {
		return e.apologize(ctx, ev.UserID, err)
	}

	if err := e.sessions.Clear(ctx, ev.UserID); err != nil {
		return e.apologize(ctx, ev.UserID, fmt.Errorf("resetting session: %w", err))
	}
	return e.send(ctx, Message{UserID: ev.UserID, Text: "Added!"})
}

// adminList shows the whole catalog, in and out of stock, with toggle buttons.
func (e *Engine) adminList(ctx context.Context, ev Event, st session.State) error {
	if !e.isAdmin(ev.UserID) {
		return nil
	}
	bouquets, err := store.ListBouquets(ctx, e.db)
	if err != nil {
		return e.apologize(ctx, ev.UserID, err)
	}
	if len(bouquets) == 0 {
		return e.send(ctx, Message{UserID: ev.UserID, Text: "The catalog is empty."})
	}

	lines := make([]string, 0, len(bouquets))
	choices := make([]Choice, 0, len(bouquets))
	for _, b := range bouquets {
		mark := "+"
		if !b.InStock {
			mark = "-"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s No.%d — %s — $%d (id:%d)",
			mark, strings.ToUpper(b.Size), b.Number, b.Title, b.Price, b.ID))
		choices = append(choices, Choice{
			Label: fmt.Sprintf("Toggle id:%d", b.ID),
			Data:  fmt.Sprintf("%s:%d", selAdminToggle, b.ID),
		})
	}
	return e.send(ctx, Message{
		UserID:  ev.UserID,
		Text:    strings.Join(lines, "\n"),
		Choices: choices,
	})
}

// adminToggle flips a bouquet's availability. Reachable from the catalog
// listing buttons or the "/toggle <id>" text command.
func (e *Engine) adminToggle(ctx context.Context, ev Event, st session.State) error {
	if !e.isAdmin(ev.UserID) {
		return nil
	}

	var arg string
	if ev.Type == EventText {
		arg = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ev.Payload), "/toggle"))
	} else {
		arg = selectionArg(ev.Payload, selAdminToggle)
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return e.send(ctx, Message{UserID: ev.UserID, Text: "Usage: /toggle <id>"})
	}

	bouquet, err := store.GetBouquet(ctx, e.db, id)
	if err != nil {
		return e.apologize(ctx, ev.UserID, err)
	}
	if bouquet == nil {
		return e.send(ctx, Message{UserID: ev.UserID, Text: "No bouquet with that id."})
	}

	if err := store.SetInStock(ctx, e.db, id, !bouquet.InStock); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return e.send(ctx, Message{UserID: ev.UserID, Text: "No bouquet with that id."})
		}
		return e.apologize(ctx, ev.UserID, err)
	}

	status := "in stock"
	if bouquet.InStock {
		status = "out of stock"
	}
	return e.send(ctx, Message{
		UserID: ev.UserID,
		Text:   fmt.Sprintf("Bouquet id:%d is now %s.", id, status),
	})
}
