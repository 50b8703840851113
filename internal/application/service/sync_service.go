package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
	domainRepo "github.com/opentill/terminal/internal/domain/repository"
	"github.com/opentill/terminal/internal/infrastructure/api"
	"github.com/opentill/terminal/pkg/apperror"
	"github.com/opentill/terminal/pkg/pagination"
	"github.com/opentill/terminal/pkg/utils"
)

// SyncService owns the offline queue and the reconciliation of mutating
// operations with the server. While Online every mutation is uploaded
// immediately and the authoritative response replaces the local copy; on a
// connection failure the operation is queued durably and the terminal drops
// to Offline. Replay walks the queue in insertion order, one entry at a
// time, and stops on the first failure.
type SyncService struct {
	queue   domainRepo.QueueStore
	records domainRepo.RecordStore
	client  *api.Client
	conn    *ConnectivityService
	session *Session
	log     zerolog.Logger
	now     func() time.Time

	// Serializes replay; two concurrent replays of the same ref must never
	// happen.
	replayMu sync.Mutex
}

// NewSyncService creates a new sync service
func NewSyncService(
	queue domainRepo.QueueStore,
	records domainRepo.RecordStore,
	client *api.Client,
	conn *ConnectivityService,
	session *Session,
	log zerolog.Logger,
) *SyncService {
	return &SyncService{
		queue:   queue,
		records: records,
		client:  client,
		conn:    conn,
		session: session,
		log:     log.With().Str("component", "sync").Logger(),
		now:     time.Now,
	}
}

// SaveSale persists a computed sale. Returns the authoritative record and
// queued=false when the upload succeeded, or the local copy and queued=true
// when it was recorded for later replay.
func (s *SyncService) SaveSale(ctx context.Context, sale *entity.Sale) (*entity.Sale, bool, error) {
	action := enum.QueueActionSaleAdd
	if sale.IsOrder {
		action = enum.QueueActionOrderSet
	}

	if s.conn.Online() {
		result, err := s.uploadSale(ctx, action, sale)
		if err == nil {
			if err := s.reconcile(ctx, result); err != nil {
				return nil, false, err
			}
			return result, false, nil
		}
		if !apperror.IsConnection(err) {
			return nil, false, err
		}
		s.conn.ForceOffline(err.Error())
	}

	if err := s.Enqueue(ctx, sale.Ref, action, sale); err != nil {
		return nil, false, err
	}
	s.log.Info().Str("ref", utils.ShortRef(sale.Ref)).Msg("sale queued for later sync")
	return sale, true, nil
}

// VoidSale voids the sale identified by ref. A void of a sale the server has
// never seen folds into its still-pending creation.
func (s *SyncService) VoidSale(ctx context.Context, ref, reason string) (*entity.Sale, bool, error) {
	sale, err := s.SaleForDisplay(ctx, ref)
	if err != nil {
		return nil, false, err
	}
	if sale == nil {
		return nil, false, apperror.NewRequestError(fmt.Sprintf("no sale with ref %s", ref), nil)
	}

	sale.VoidData = &entity.VoidRecord{
		ProcessedAt: s.now(),
		UserID:      s.session.UserID(),
		DeviceID:    s.session.Device().DeviceID,
		Reason:      reason,
	}

	entry, err := s.queue.Get(ctx, ref)
	if err != nil {
		return nil, false, err
	}
	if entry != nil {
		// The creation is still pending; the void rides along in its payload
		// so replay never resurrects the un-voided sale.
		if err := s.Enqueue(ctx, ref, entry.Action, sale); err != nil {
			return nil, false, err
		}
		return sale, true, nil
	}

	if s.conn.Online() {
		result, err := s.uploadVoid(ctx, sale)
		if err == nil {
			if err := s.reconcile(ctx, result); err != nil {
				return nil, false, err
			}
			return result, false, nil
		}
		if !apperror.IsConnection(err) {
			return nil, false, err
		}
		s.conn.ForceOffline(err.Error())
	}

	if err := s.Enqueue(ctx, ref, enum.QueueActionSaleVoid, sale); err != nil {
		return nil, false, err
	}
	return sale, true, nil
}

// UpdateNotes attaches notes to a sale. When the sale itself is still
// pending, the notes merge into its queued payload rather than superseding
// the creation.
func (s *SyncService) UpdateNotes(ctx context.Context, ref, notes string) error {
	sale, err := s.SaleForDisplay(ctx, ref)
	if err != nil {
		return err
	}
	if sale == nil {
		return apperror.NewRequestError(fmt.Sprintf("no sale with ref %s", ref), nil)
	}
	sale.Notes = notes

	entry, err := s.queue.Get(ctx, ref)
	if err != nil {
		return err
	}
	if entry != nil {
		// Keep the pending action; only its payload learns the new notes.
		return s.Enqueue(ctx, ref, entry.Action, sale)
	}

	if s.conn.Online() {
		err := s.client.UpdateNotes(ctx, &api.NotesUpdate{Ref: ref, Notes: notes})
		if err == nil {
			return s.records.Put(ctx, enum.RecordSale, ref, sale)
		}
		if !apperror.IsConnection(err) {
			return err
		}
		s.conn.ForceOffline(err.Error())
	}

	return s.Enqueue(ctx, ref, enum.QueueActionNoteUpdate, sale)
}

// RemoveOrder drops one kitchen order from a sale.
func (s *SyncService) RemoveOrder(ctx context.Context, ref string, orderID int64) error {
	sale, err := s.SaleForDisplay(ctx, ref)
	if err != nil {
		return err
	}
	if sale == nil {
		return apperror.NewRequestError(fmt.Sprintf("no sale with ref %s", ref), nil)
	}
	delete(sale.OrderData, orderID)

	entry, err := s.queue.Get(ctx, ref)
	if err != nil {
		return err
	}
	if entry != nil {
		return s.Enqueue(ctx, ref, entry.Action, sale)
	}

	if s.conn.Online() {
		err := s.client.RemoveOrder(ctx, &api.OrderRemoval{Ref: ref, OrderID: orderID})
		if err == nil {
			return s.records.Put(ctx, enum.RecordSale, ref, sale)
		}
		if !apperror.IsConnection(err) {
			return err
		}
		s.conn.ForceOffline(err.Error())
	}

	return s.Enqueue(ctx, ref, enum.QueueActionOrderRemove, sale)
}

// Enqueue upserts a pending action for ref and mirrors the payload into the
// record store so this device's own reads stay consistent before upload.
func (s *SyncService) Enqueue(ctx context.Context, ref string, action enum.QueueAction, payload any) error {
	if err := s.queue.Upsert(ctx, ref, action, payload); err != nil {
		return err
	}
	if sale, ok := payload.(*entity.Sale); ok {
		return s.records.Put(ctx, enum.RecordSale, ref, sale)
	}
	return nil
}

// IsPending reports whether ref has a queued, not yet uploaded action.
func (s *SyncService) IsPending(ctx context.Context, ref string) (bool, error) {
	return s.queue.IsPending(ctx, ref)
}

// PendingCount returns the number of queued actions.
func (s *SyncService) PendingCount(ctx context.Context) (int64, error) {
	return s.queue.Count(ctx)
}

// SaleForDisplay resolves the visible copy of a sale: a pending queue
// payload is authoritative over the synced record until upload clears it.
func (s *SyncService) SaleForDisplay(ctx context.Context, ref string) (*entity.Sale, error) {
	entry, err := s.queue.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		var sale entity.Sale
		if err := entry.DecodePayload(&sale); err != nil {
			return nil, err
		}
		return &sale, nil
	}

	var sale entity.Sale
	found, err := s.records.Get(ctx, enum.RecordSale, ref, &sale)
	if err != nil || !found {
		return nil, err
	}
	return &sale, nil
}

// ReplayAll uploads every queued entry in insertion order, strictly one at a
// time. A void whose sale never reached the server is translated to a
// creation so the void folds into it. The first failure stops the replay,
// leaves the remaining entries queued and drops the terminal back to
// Offline.
func (s *SyncService) ReplayAll(ctx context.Context) error {
	s.replayMu.Lock()
	defer s.replayMu.Unlock()

	entries, err := s.queue.All(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	s.log.Info().Int("pending", len(entries)).Msg("replaying offline queue")

	for _, entry := range entries {
		if err := s.replayEntry(ctx, &entry); err != nil {
			s.conn.ForceOffline(fmt.Sprintf("replay of %s failed", utils.ShortRef(entry.Ref)))
			return fmt.Errorf("replay %s (%s): %w", utils.ShortRef(entry.Ref), entry.Action, err)
		}
		if err := s.queue.Delete(ctx, entry.Ref); err != nil {
			return err
		}
	}

	s.log.Info().Int("uploaded", len(entries)).Msg("offline queue drained")
	return nil
}

func (s *SyncService) replayEntry(ctx context.Context, entry *entity.OfflineQueueEntry) error {
	switch entry.Action {
	case enum.QueueActionSaleAdd, enum.QueueActionSaleVoid, enum.QueueActionOrderSet, enum.QueueActionOrderRemove:
		var sale entity.Sale
		if err := entry.DecodePayload(&sale); err != nil {
			return apperror.NewRequestError("corrupt queue payload", err)
		}

		action := entry.Action
		if action == enum.QueueActionSaleVoid && !sale.Synced() {
			// The original creation never reached the server; fold the void
			// into it.
			action = enum.QueueActionSaleAdd
		}

		var result *entity.Sale
		var err error
		switch action {
		case enum.QueueActionSaleAdd:
			result, err = s.client.AddSale(ctx, &sale)
		case enum.QueueActionSaleVoid:
			result, err = s.uploadVoid(ctx, &sale)
		case enum.QueueActionOrderSet, enum.QueueActionOrderRemove:
			result, err = s.client.SetOrder(ctx, &sale)
		}
		if err != nil {
			return err
		}
		return s.reconcile(ctx, result)

	case enum.QueueActionNoteUpdate:
		var sale entity.Sale
		if err := entry.DecodePayload(&sale); err != nil {
			return apperror.NewRequestError("corrupt queue payload", err)
		}
		return s.client.UpdateNotes(ctx, &api.NotesUpdate{Ref: sale.Ref, Notes: sale.Notes})

	default:
		return apperror.NewRequestError(fmt.Sprintf("unknown queue action %q", entry.Action), nil)
	}
}

func (s *SyncService) uploadSale(ctx context.Context, action enum.QueueAction, sale *entity.Sale) (*entity.Sale, error) {
	if action == enum.QueueActionOrderSet {
		return s.client.SetOrder(ctx, sale)
	}
	return s.client.AddSale(ctx, sale)
}

func (s *SyncService) uploadVoid(ctx context.Context, sale *entity.Sale) (*entity.Sale, error) {
	if !sale.Synced() {
		return s.client.AddSale(ctx, sale)
	}
	return s.client.VoidSale(ctx, sale)
}

// SalesQuery filters a local sales search. Unset fields match everything.
type SalesQuery struct {
	Ref        string
	CustomerID *int64
	Status     *enum.SaleStatus
}

// SearchSales runs a sales search. Online it asks the server, so results
// include other terminals' sales; offline, or when the server drops the
// connection mid-query, it falls back to the local record store.
func (s *SyncService) SearchSales(ctx context.Context, query SalesQuery, params *pagination.Params) (*pagination.Result[entity.Sale], error) {
	if !s.conn.Online() {
		return s.SearchLocalSales(ctx, query, params)
	}

	remote := &api.SearchQuery{Ref: query.Ref}
	if query.CustomerID != nil {
		remote.Customer = strconv.FormatInt(*query.CustomerID, 10)
	}

	found, err := s.client.SearchSales(ctx, remote)
	if err != nil {
		if !apperror.IsConnection(err) {
			return nil, err
		}
		s.conn.ForceOffline(err.Error())
		return s.SearchLocalSales(ctx, query, params)
	}

	sales := make([]entity.Sale, 0, len(found))
	for _, sale := range found {
		entry, err := s.queue.Get(ctx, sale.Ref)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			// This device holds a newer, not yet uploaded copy.
			var pending entity.Sale
			if err := entry.DecodePayload(&pending); err == nil {
				sale = pending
			}
		}
		if query.matches(&sale) {
			sales = append(sales, sale)
		}
	}

	sort.Slice(sales, func(i, j int) bool {
		return sales[i].ProcessedAt.After(sales[j].ProcessedAt)
	})

	return pagination.Page(sales, params), nil
}

// SearchLocalSales pages through the locally known sales, newest first.
// Pending queue payloads take precedence over their synced counterparts, the
// same way single-sale reads resolve.
func (s *SyncService) SearchLocalSales(ctx context.Context, query SalesQuery, params *pagination.Params) (*pagination.Result[entity.Sale], error) {
	records, err := s.records.List(ctx, enum.RecordSale)
	if err != nil {
		return nil, err
	}

	sales := make([]entity.Sale, 0, len(records))
	for _, record := range records {
		var sale entity.Sale
		if err := record.Decode(&sale); err != nil {
			s.log.Warn().Err(err).Str("key", record.Key).Msg("skipping undecodable sale record")
			continue
		}

		entry, err := s.queue.Get(ctx, sale.Ref)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			var pending entity.Sale
			if err := entry.DecodePayload(&pending); err == nil {
				sale = pending
			}
		}

		if query.matches(&sale) {
			sales = append(sales, sale)
		}
	}

	sort.Slice(sales, func(i, j int) bool {
		return sales[i].ProcessedAt.After(sales[j].ProcessedAt)
	})

	return pagination.Page(sales, params), nil
}

func (q *SalesQuery) matches(sale *entity.Sale) bool {
	if q.Ref != "" && !strings.Contains(sale.Ref, q.Ref) {
		return false
	}
	if q.CustomerID != nil && (sale.CustomerID == nil || *sale.CustomerID != *q.CustomerID) {
		return false
	}
	if q.Status != nil && sale.Status() != *q.Status {
		return false
	}
	return true
}

// reconcile replaces the local copy with the server's authoritative record.
func (s *SyncService) reconcile(ctx context.Context, sale *entity.Sale) error {
	if sale == nil || sale.Ref == "" {
		return nil
	}
	return s.records.Put(ctx, enum.RecordSale, sale.Ref, sale)
}
