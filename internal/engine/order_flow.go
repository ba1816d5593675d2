package engine

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/erazemk/cvetlicarna/internal/model"
	"github.com/erazemk/cvetlicarna/internal/session"
	"github.com/erazemk/cvetlicarna/internal/store"
)

// Scratch keys used by the order flow.
const (
	keySize         = "size"
	keyBouquetID    = "bouquet_id"
	keyBouquetTitle = "bouquet_title"
	keyPrice        = "price"
	keyAddress      = "address"
	keyDeliveryTime = "delivery_time"
)

func sizeChoices() []Choice {
	choices := make([]Choice, 0, len(model.Sizes))
	for _, s := range model.Sizes {
		choices = append(choices, Choice{Label: model.SizeName(s), Data: selSize + ":" + s})
	}
	return choices
}

// showSizes starts the order flow over: any in-progress flow is abandoned.
func (e *Engine) showSizes(ctx context.Context, ev Event, st session.State) error {
	if err := e.sessions.Clear(ctx, ev.UserID); err != nil {
		return e.apologize(ctx, ev.UserID, fmt.Errorf("resetting session: %w", err))
	}
	return e.send(ctx, Message{
		UserID:  ev.UserID,
		Text:    "Choose a bouquet size:",
		Choices: sizeChoices(),
	})
}

// browseSize lists in-stock bouquets of the chosen size and moves the user to
// number selection. An empty size returns the user to idle, not an error.
func (e *Engine) browseSize(ctx context.Context, ev Event, st session.State) error {
	size := selectionArg(ev.Payload, selSize)
	if !model.ValidSize(size) {
		log.Printf("engine: user %d selected unknown size %q", ev.UserID, size)
		return nil
	}

	items, err := store.ListInStock(ctx, e.db, size)
	if err != nil {
		return e.apologize(ctx, ev.UserID, err)
	}

	if len(items) == 0 {
		if err := e.sessions.Clear(ctx, ev.UserID); err != nil {
			return e.apologize(ctx, ev.UserID, fmt.Errorf("resetting session: %w", err))
		}
		return e.send(ctx, Message{
			UserID: ev.UserID,
			Text:   fmt.Sprintf("No %s bouquets in stock right now.", model.SizeName(size)),
		})
	}

	if len(items) > MaxCatalogPage {
		items = items[:MaxCatalogPage]
	}

	next := session.State{Step: session.StepOrderNumber}
	next.Set(keySize, size)
	if err := e.sessions.Put(ctx, ev.UserID, next); err != nil {
		return e.apologize(ctx, ev.UserID, fmt.Errorf("storing session: %w", err))
	}

	lines := make([]string, 0, len(items))
	choices := make([]Choice, 0, len(items))
	for _, b := range items {
		lines = append(lines, fmt.Sprintf("No.%d — %s — $%d", b.Number, b.Title, b.Price))
		choices = append(choices, Choice{Label: strconv.Itoa(b.Number), Data: fmt.Sprintf("%s:%d", selPick, b.Number)})
	}
	if err := e.send(ctx, Message{UserID: ev.UserID, Text: "Bouquets in stock:\n" + strings.Join(lines, "\n")}); err != nil {
		return err
	}
	return e.send(ctx, Message{
		UserID:  ev.UserID,
		Text:    "Tap a bouquet number:",
		Choices: choices,
	})
}

// pickBouquet resolves the chosen number within the stored size. An unknown
// number keeps the user in number selection so they can retry.
func (e *Engine) pickBouquet(ctx context.Context, ev Event, st session.State) error {
	number, err := strconv.Atoi(selectionArg(ev.Payload, selPick))
	if err != nil {
		return e.send(ctx, Message{UserID: ev.UserID, Text: "No bouquet with that number.", Alert: true})
	}

	bouquet, err := store.FindBouquet(ctx, e.db, st.Get(keySize), number)
	if err != nil {
		return e.apologize(ctx, ev.UserID, err)
	}
	if bouquet == nil {
		return e.send(ctx, Message{UserID: ev.UserID, Text: "No bouquet with that number.", Alert: true})
	}

	st.Step = session.StepOrderAddress
	st.Set(keyBouquetID, strconv.FormatInt(bouquet.ID, 10))
	st.Set(keyBouquetTitle, bouquet.Title)
	st.Set(keyPrice, strconv.FormatInt(bouquet.Price, 10))
	if err := e.sessions.Put(ctx, ev.UserID, st); err != nil {
		return e.apologize(ctx, ev.UserID, fmt.Errorf("storing session: %w", err))
	}

	return e.send(ctx, Message{
		UserID: ev.UserID,
		Text: fmt.Sprintf("You picked No.%d — %s\nSize: %s\nPrice: $%d\n\nSend the delivery address:",
			bouquet.Number, bouquet.Title, model.SizeName(bouquet.Size), bouquet.Price),
	})
}

// setAddress validates and stores the delivery address. Too-short input
// re-prompts without advancing.
func (e *Engine) setAddress(ctx context.Context, ev Event, st session.State) error {
	address := strings.TrimSpace(ev.Payload)
	if !validAddress(address) {
		return e.send(ctx, Message{UserID: ev.UserID, Text: "Please send the full delivery address."})
	}

	st.Step = session.StepOrderTime
	st.Set(keyAddress, address)
	if err := e.sessions.Put(ctx, ev.UserID, st); err != nil {
		return e.apologize(ctx, ev.UserID, fmt.Errorf("storing session: %w", err))
	}

	return e.send(ctx, Message{
		UserID: ev.UserID,
		Text:   "When should we deliver? (for example: today 18:30)",
	})
}

// setDeliveryTime validates the delivery wish, stores it verbatim, and shows
// the order summary with the available payment paths.
func (e *Engine) setDeliveryTime(ctx context.Context, ev Event, st session.State) error {
	wish := strings.TrimSpace(ev.Payload)
	if !validDeliveryTime(wish) {
		return e.send(ctx, Message{
			UserID: ev.UserID,
			Text:   "Send a time like HH:MM, optionally with 'today' or 'tomorrow'.",
		})
	}

	st.Step = session.StepOrderPayment
	st.Set(keyDeliveryTime, wish)
	if err := e.sessions.Put(ctx, ev.UserID, st); err != nil {
		return e.apologize(ctx, ev.UserID, fmt.Errorf("storing session: %w", err))
	}

	var choices []Choice
	if e.invoicer != nil {
		choices = append(choices, Choice{Label: "Pay now", Data: payInvoice})
	} else {
		choices = append(choices, Choice{Label: "Confirm without payment", Data: payConfirm})
	}
	choices = append(choices, Choice{Label: "Back", Data: payBack})

	return e.send(ctx, Message{
		UserID: ev.UserID,
		Text: fmt.Sprintf("Let's check the order:\nBouquet: %s\nTotal: $%s\nAddress: %s\nDelivery: %s\n\nIf everything looks right, confirm below.",
			st.Get(keyBouquetTitle), st.Get(keyPrice), st.Get(keyAddress), wish),
		Choices: choices,
	})
}

// paymentChoice handles the summary-screen buttons.
func (e *Engine) paymentChoice(ctx context.Context, ev Event, st session.State) error {
	switch ev.Payload {
	case payBack:
		if err := e.sessions.Clear(ctx, ev.UserID); err != nil {
			return e.apologize(ctx, ev.UserID, fmt.Errorf("resetting session: %w", err))
		}
		return e.send(ctx, Message{
			UserID:  ev.UserID,
			Text:    "Okay, choose a bouquet size:",
			Choices: sizeChoices(),
		})

	case payConfirm:
		if e.invoicer != nil {
			// Only offered when no provider is configured; a stale button.
			return e.send(ctx, Message{UserID: ev.UserID, Text: "Please pay through the invoice.", Alert: true})
		}
		order, err := e.placeOrder(ctx, ev.UserID, st, model.OrderStatusPending)
		if err != nil {
			return e.apologize(ctx, ev.UserID, err)
		}
		if err := e.sessions.Clear(ctx, ev.UserID); err != nil {
			return e.apologize(ctx, ev.UserID, fmt.Errorf("resetting session: %w", err))
		}
		return e.send(ctx, Message{
			UserID: ev.UserID,
			Text:   fmt.Sprintf("Order #%s placed. Status: awaiting payment.", order.ID),
		})

	case payInvoice:
		if e.invoicer == nil {
			return e.send(ctx, Message{UserID: ev.UserID, Text: "Payment provider is not configured.", Alert: true})
		}
		description := fmt.Sprintf("Delivery: %s\nAddress: %s", st.Get(keyDeliveryTime), st.Get(keyAddress))
		amount, err := strconv.ParseInt(st.Get(keyPrice), 10, 64)
		if err != nil {
			return e.apologize(ctx, ev.UserID, fmt.Errorf("corrupt price in scratch: %w", err))
		}
		// Provider amounts are in minor currency units.
		if err := e.invoicer.RequestInvoice(ctx, ev.UserID, st.Get(keyBouquetTitle), amount*100, description); err != nil {
			return e.send(ctx, Message{UserID: ev.UserID, Text: "Could not reach the payment provider, try again.", Alert: true})
		}
		// Stay in this step; the payment_succeeded event arrives later.
		return nil
	}

	log.Printf("engine: dropping unknown payment choice %q from user %d", ev.Payload, ev.UserID)
	return nil
}

// paymentSucceeded handles the asynchronous payment confirmation. Delivery is
// at-least-once: when the scratch no longer holds a pending selection (the
// flow completed or was reset) the event is acknowledged without creating a
// duplicate order.
func (e *Engine) paymentSucceeded(ctx context.Context, ev Event, st session.State) error {
	if st.Get(keyBouquetID) == "" || st.Get(keyAddress) == "" || st.Get(keyDeliveryTime) == "" {
		return e.send(ctx, Message{
			UserID: ev.UserID,
			Text:   "Thanks for the payment! Your order is being processed.",
		})
	}

	order, err := e.placeOrder(ctx, ev.UserID, st, model.OrderStatusPaid)
	if err != nil {
		return e.apologize(ctx, ev.UserID, err)
	}
	if err := e.sessions.Clear(ctx, ev.UserID); err != nil {
		return e.apologize(ctx, ev.UserID, fmt.Errorf("resetting session: %w", err))
	}
	return e.send(ctx, Message{
		UserID: ev.UserID,
		Text:   fmt.Sprintf("Payment received! Order #%s is confirmed.", order.ID),
	})
}

// placeOrder creates an order from the scratch fields. The total is captured
// from the scratch price, not the current catalog price.
func (e *Engine) placeOrder(ctx context.Context, userID int64, st session.State, status string) (*model.Order, error) {
	bouquetID, err := strconv.ParseInt(st.Get(keyBouquetID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt bouquet id in scratch: %w", err)
	}
	total, err := strconv.ParseInt(st.Get(keyPrice), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt price in scratch: %w", err)
	}

	order, err := store.CreateOrder(ctx, e.db, userID, bouquetID, total, st.Get(keyAddress), st.Get(keyDeliveryTime))
	if err != nil {
		return nil, err
	}
	if status != model.OrderStatusPending {
		if err := store.SetOrderStatus(ctx, e.db, order.ID, status); err != nil {
			return nil, err
		}
		order.Status = status
	}

	if e.notifier != nil {
		if err := e.notifier.OrderCreated(ctx, order); err != nil {
			log.Printf("engine: order %s notification failed: %v", order.ID, err)
		}
	}
	return order, nil
}

// listOrders is stateless and available from any step.
func (e *Engine) listOrders(ctx context.Context, ev Event, st session.State) error {
	orders, err := store.ListOrdersByUser(ctx, e.db, ev.UserID, MaxOrderList)
	if err != nil {
		return e.apologize(ctx, ev.UserID, err)
	}
	if len(orders) == 0 {
		return e.send(ctx, Message{UserID: ev.UserID, Text: "You have no orders yet."})
	}

	blocks := make([]string, 0, len(orders))
	for _, o := range orders {
		blocks = append(blocks, fmt.Sprintf("#%s — %s (%s, No.%d)\nStatus: %s • Total: $%d • %s",
			o.ID, o.BouquetTitle, model.SizeName(o.BouquetSize), o.BouquetNumber,
			o.Status, o.Total, o.CreatedAt.Format("2006-01-02 15:04")))
	}
	return e.send(ctx, Message{UserID: ev.UserID, Text: strings.Join(blocks, "\n\n")})
}
