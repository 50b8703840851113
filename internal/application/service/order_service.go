package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
	domainRepo "github.com/opentill/terminal/internal/domain/repository"
	"github.com/opentill/terminal/pkg/utils"
)

// OrderChange is one kitchen-relevant difference between two versions of a
// sale: an order that appeared, changed its contents, or disappeared.
type OrderChange struct {
	Kind  enum.OrderChangeKind
	Sale  *entity.Sale
	Order *entity.Order
}

// KitchenNotifier receives order changes for display or ticket printing.
type KitchenNotifier interface {
	NotifyOrder(ctx context.Context, change *OrderChange)
}

// AckSender confirms receipt of a kitchen order back to the originating
// terminal. Implemented by the feed service; installed after construction
// because the feed in turn dispatches incoming sales to this service.
type AckSender interface {
	SendKitchenAck(ctx context.Context, saleRef string, deviceID int64) error
}

// OrderService tracks kitchen orders across sale versions. Every incoming
// sale is diffed against the previously stored version; orders this
// kitchen-display terminal surfaces get acknowledged so the sending till can
// show delivery.
type OrderService struct {
	records   domainRepo.RecordStore
	session   *Session
	log       zerolog.Logger
	notifiers []KitchenNotifier
	acks      AckSender
}

// NewOrderService creates a new order service
func NewOrderService(records domainRepo.RecordStore, session *Session, log zerolog.Logger) *OrderService {
	return &OrderService{
		records: records,
		session: session,
		log:     log.With().Str("component", "orders").Logger(),
	}
}

// AddNotifier registers a kitchen notifier.
func (s *OrderService) AddNotifier(n KitchenNotifier) {
	s.notifiers = append(s.notifiers, n)
}

// SetAckSender installs the acknowledgement channel.
func (s *OrderService) SetAckSender(a AckSender) {
	s.acks = a
}

// Diff compares a sale's orders with its previously observed version and
// returns the kitchen-relevant changes. With no prior version every order is
// New. An order is Updated when either its modification stamp is newer than
// the prior one or its item ref set differs; index-only reshuffles are not
// updates. Orders present before but absent now are Cancelled.
func (s *OrderService) Diff(prev, next *entity.Sale) []OrderChange {
	var changes []OrderChange

	for id, order := range next.OrderData {
		if prev == nil {
			changes = append(changes, OrderChange{Kind: enum.OrderChangeNew, Sale: next, Order: order})
			continue
		}
		before, ok := prev.OrderData[id]
		if !ok {
			changes = append(changes, OrderChange{Kind: enum.OrderChangeNew, Sale: next, Order: order})
			continue
		}
		if order.ModifiedAfter(before) || !order.SameItemSet(before) {
			changes = append(changes, OrderChange{Kind: enum.OrderChangeUpdated, Sale: next, Order: order})
		}
	}

	if prev != nil {
		for id, order := range prev.OrderData {
			if _, ok := next.OrderData[id]; !ok {
				changes = append(changes, OrderChange{Kind: enum.OrderChangeCancelled, Sale: next, Order: order})
			}
		}
	}

	return changes
}

// HandleIncomingSale processes a sale received over the realtime feed. The
// prior version is loaded before the new one is stored so the diff is
// against what this terminal actually knew. Kitchen notifications and the
// acknowledgement only happen on a kitchen-display terminal.
func (s *OrderService) HandleIncomingSale(ctx context.Context, sale *entity.Sale) error {
	var prev *entity.Sale
	var stored entity.Sale
	found, err := s.records.Get(ctx, enum.RecordSale, sale.Ref, &stored)
	if err != nil {
		return err
	}
	if found {
		prev = &stored
	}

	if err := s.records.Put(ctx, enum.RecordSale, sale.Ref, sale); err != nil {
		return err
	}

	if !s.session.Config().KitchenDisplay {
		return nil
	}

	changes := s.Diff(prev, sale)
	if len(changes) == 0 {
		return nil
	}
	s.log.Debug().Str("ref", utils.ShortRef(sale.Ref)).Int("changes", len(changes)).Msg("kitchen orders changed")

	for i := range changes {
		for _, n := range s.notifiers {
			n.NotifyOrder(ctx, &changes[i])
		}
	}

	if s.acks != nil {
		if err := s.acks.SendKitchenAck(ctx, sale.Ref, sale.DeviceID); err != nil {
			s.log.Warn().Err(err).Str("ref", utils.ShortRef(sale.Ref)).Msg("kitchen ack failed")
		}
	}
	return nil
}

// MarkReceived flags every order of the sale as received by a kitchen
// display. Called when this terminal's own order is acknowledged remotely.
func (s *OrderService) MarkReceived(ctx context.Context, ref string) error {
	var sale entity.Sale
	found, err := s.records.Get(ctx, enum.RecordSale, ref, &sale)
	if err != nil || !found {
		return err
	}

	changed := false
	for _, order := range sale.OrderData {
		if !order.Received {
			order.Received = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.records.Put(ctx, enum.RecordSale, ref, &sale)
}

// OpenOrders returns every locally known sale that still carries
// unreceived or open kitchen orders, for the kitchen display listing.
func (s *OrderService) OpenOrders(ctx context.Context) ([]entity.Sale, error) {
	var all []entity.Sale
	payloads, err := s.records.List(ctx, enum.RecordSale)
	if err != nil {
		return nil, err
	}
	for _, raw := range payloads {
		var sale entity.Sale
		if err := raw.Decode(&sale); err != nil {
			s.log.Warn().Err(err).Msg("skipping undecodable sale record")
			continue
		}
		if sale.IsOrder && len(sale.OrderData) > 0 && sale.VoidData == nil {
			all = append(all, sale)
		}
	}
	return all, nil
}
