package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
	domainRepo "github.com/opentill/terminal/internal/domain/repository"
	"github.com/opentill/terminal/internal/infrastructure/api"
	"github.com/opentill/terminal/internal/infrastructure/database"
	"github.com/opentill/terminal/internal/infrastructure/repository"
)

// fakePOS is an in-process stand-in for the server: envelope responses,
// ref-keyed idempotent sale storage, and a kill switch that drops
// connections to simulate an outage.
type fakePOS struct {
	t    *testing.T
	srv  *httptest.Server
	down atomic.Bool

	mu        sync.Mutex
	calls     []string
	sales     map[string]*entity.Sale
	voided    map[string]bool
	fail      map[string]string
	nextID    int64
	config    *entity.TerminalConfig
	items     []entity.Item
	customers []entity.Customer
	openSales []entity.Sale
	roster    []entity.CachedUser
	renews    int
}

func newFakePOS(t *testing.T) *fakePOS {
	f := &fakePOS{
		t:      t,
		sales:  make(map[string]*entity.Sale),
		voided: make(map[string]bool),
		fail:   make(map[string]string),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePOS) failWith(action, code string) {
	f.mu.Lock()
	f.fail[action] = code
	f.mu.Unlock()
}

func (f *fakePOS) clearFailures() {
	f.mu.Lock()
	f.fail = make(map[string]string)
	f.mu.Unlock()
}

func (f *fakePOS) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakePOS) sale(ref string) *entity.Sale {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sales[ref]
}

func (f *fakePOS) isVoided(ref string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.voided[ref]
}

func (f *fakePOS) handle(w http.ResponseWriter, r *http.Request) {
	if f.down.Load() {
		hj, ok := w.(http.Hijacker)
		if !ok {
			f.t.Fatal("response writer does not support hijacking")
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}

	action := strings.TrimPrefix(r.URL.Path, "/api/")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, action)

	if code, ok := f.fail[action]; ok {
		f.write(w, code, "rejected", nil)
		return
	}

	switch action {
	case "hello":
		f.write(w, "OK", "OK", "hello")

	case "sales/add", "orders/set":
		var req struct {
			Data entity.Sale `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.write(w, "request", err.Error(), nil)
			return
		}
		sale := req.Data
		if existing, ok := f.sales[sale.Ref]; ok && existing.ID != nil {
			sale.ID = existing.ID
		} else {
			f.nextID++
			id := f.nextID
			sale.ID = &id
		}
		f.sales[sale.Ref] = &sale
		if sale.VoidData != nil {
			f.voided[sale.Ref] = true
		}
		f.write(w, "OK", "OK", &sale)

	case "sales/void":
		var req struct {
			Data entity.Sale `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.write(w, "request", err.Error(), nil)
			return
		}
		if req.Data.ID == nil {
			f.write(w, "validation", "cannot void unknown sale", nil)
			return
		}
		sale := req.Data
		f.sales[sale.Ref] = &sale
		f.voided[sale.Ref] = true
		f.write(w, "OK", "OK", &sale)

	case "sales/updatenotes":
		var req struct {
			Data api.NotesUpdate `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.write(w, "request", err.Error(), nil)
			return
		}
		if sale, ok := f.sales[req.Data.Ref]; ok {
			sale.Notes = req.Data.Notes
		}
		f.write(w, "OK", "OK", nil)

	case "orders/remove":
		f.write(w, "OK", "OK", nil)

	case "auth":
		f.write(w, "OK", "OK", &api.AuthResult{
			Token:      "server-token-1",
			RenewToken: "renew-token-1",
			Users:      f.roster,
		})

	case "authrenew":
		f.renews++
		f.write(w, "OK", "OK", &api.AuthResult{
			Token:      "server-token-2",
			RenewToken: "renew-token-2",
		})

	case "config/get":
		cfg := f.config
		if cfg == nil {
			cfg = &entity.TerminalConfig{CurrencyCode: "NZD"}
		}
		f.write(w, "OK", "OK", cfg)

	case "items/get":
		f.write(w, "OK", "OK", f.items)

	case "customers/get":
		f.write(w, "OK", "OK", f.customers)

	case "sales/get":
		f.write(w, "OK", "OK", f.openSales)

	case "sales/search":
		var req struct {
			Data api.SearchQuery `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.write(w, "request", err.Error(), nil)
			return
		}
		matches := []entity.Sale{}
		for _, sale := range f.sales {
			if req.Data.Ref != "" && sale.Ref != req.Data.Ref {
				continue
			}
			matches = append(matches, *sale)
		}
		f.write(w, "OK", "OK", matches)

	case "devices/registrations/delete":
		f.write(w, "OK", "OK", nil)

	case "devices/setup":
		var req struct {
			Data api.SetupRequest `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.write(w, "request", err.Error(), nil)
			return
		}
		f.write(w, "OK", "OK", &entity.DeviceIdentity{
			DeviceID:   99,
			LocationID: req.Data.LocationID,
			Name:       req.Data.Name,
			UUID:       req.Data.UUID,
		})

	default:
		f.write(w, "request", "unknown action "+action, nil)
	}
}

func (f *fakePOS) write(w http.ResponseWriter, code, msg string, data any) {
	envelope := api.Envelope{ErrorCode: code, Error: msg}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			f.t.Fatalf("encoding fake response: %v", err)
		}
		envelope.Data = raw
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&envelope); err != nil {
		f.t.Logf("writing fake response: %v", err)
	}
}

// testEngine wires a real sqlite store and the sync stack against a fakePOS.
type testEngine struct {
	pos     *fakePOS
	records domainRepo.RecordStore
	queue   domainRepo.QueueStore
	client  *api.Client
	conn    *ConnectivityService
	session *Session
	sync    *SyncService
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	pos := newFakePOS(t)

	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "terminal.db"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	log := zerolog.Nop()
	records := repository.NewRecordRepository(db)
	queue := repository.NewQueueRepository(db)
	client := api.NewClient(pos.srv.URL, 2*time.Second, time.Second, log)
	conn := NewConnectivityService(client, records, 10*time.Millisecond, log)

	session := NewSession()
	session.SetDevice(&entity.DeviceIdentity{DeviceID: 7, LocationID: 3, Name: "till-1"})
	session.SetUser(&entity.CachedUser{ID: 42, Username: "amy"})

	require.NoError(t, conn.InitialProbe(context.Background()))

	return &testEngine{
		pos:     pos,
		records: records,
		queue:   queue,
		client:  client,
		conn:    conn,
		session: session,
		sync:    NewSyncService(queue, records, client, conn, session, log),
	}
}

func cashSale(ref string, total int64) *entity.Sale {
	return &entity.Sale{
		Ref: ref,
		Items: []entity.LineItem{
			{Ref: "1", Name: "flat white", Qty: 1, Unit: total, Price: total},
		},
		Payments: []entity.Payment{
			{Method: enum.PaymentCash, Amount: total, Tender: total},
		},
		Subtotal:    total,
		Total:       total,
		NumItems:    1,
		ProcessedAt: time.Now().UTC().Truncate(time.Millisecond),
		DeviceID:    7,
		LocationID:  3,
		UserID:      42,
	}
}
