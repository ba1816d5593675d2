package engine

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/erazemk/cvetlicarna/internal/db"
	"github.com/erazemk/cvetlicarna/internal/model"
	"github.com/erazemk/cvetlicarna/internal/session"
	"github.com/erazemk/cvetlicarna/internal/store"
)

const (
	testCustomer = int64(42)
	testAdmin    = int64(99)
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []Message
}

func (f *fakeSender) Send(ctx context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func (f *fakeSender) last(t *testing.T) Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		t.Fatal("expected at least one outbound message")
	}
	return f.msgs[len(f.msgs)-1]
}

type fakeInvoicer struct {
	mu       sync.Mutex
	requests []int64 // amounts, in minor units
}

func (f *fakeInvoicer) RequestInvoice(ctx context.Context, userID int64, title string, amount int64, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, amount)
	return nil
}

type testEnv struct {
	t        *testing.T
	engine   *Engine
	sender   *fakeSender
	db       *sql.DB
	sessions session.Store
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	sender := &fakeSender{}
	cfg := Config{
		DB:       database,
		Sessions: session.NewMemory(),
		Sender:   sender,
		AdminIDs: []int64{testAdmin},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return &testEnv{
		t:        t,
		engine:   New(cfg),
		sender:   sender,
		db:       database,
		sessions: cfg.Sessions,
	}
}

func (env *testEnv) handle(ev Event) {
	env.t.Helper()
	if err := env.engine.Handle(context.Background(), ev); err != nil {
		env.t.Fatalf("Handle(%+v): %v", ev, err)
	}
}

func (env *testEnv) step(userID int64) session.Step {
	env.t.Helper()
	st, err := env.sessions.Get(context.Background(), userID)
	if err != nil {
		env.t.Fatalf("reading session: %v", err)
	}
	return st.Step
}

func (env *testEnv) seedBouquet(size string, number int, title string, price int64) *model.Bouquet {
	env.t.Helper()
	b, err := store.InsertBouquet(context.Background(), env.db, size, number, title, price, "file-"+title)
	if err != nil {
		env.t.Fatalf("seeding bouquet: %v", err)
	}
	return b
}

func (env *testEnv) orders(userID int64) []model.Order {
	env.t.Helper()
	orders, err := store.ListOrdersByUser(context.Background(), env.db, userID, 100)
	if err != nil {
		env.t.Fatalf("listing orders: %v", err)
	}
	return orders
}

func sel(userID int64, payload string) Event {
	return Event{Type: EventSelection, UserID: userID, Payload: payload}
}

func txt(userID int64, payload string) Event {
	return Event{Type: EventText, UserID: userID, Payload: payload}
}

func photo(userID int64, fileID string) Event {
	return Event{Type: EventPhoto, UserID: userID, Payload: fileID}
}

func paid(userID int64) Event {
	return Event{Type: EventPaymentSucceeded, UserID: userID}
}
