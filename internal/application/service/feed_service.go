package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
	domainRepo "github.com/opentill/terminal/internal/domain/repository"
	"github.com/opentill/terminal/internal/infrastructure/realtime"
)

// Sender is the outbound surface of the realtime feed.
type Sender interface {
	Send(v any) error
	Kick()
}

// FeedService interprets realtime feed events and applies them to the local
// record store: catalog and customer merges and deletions, config pushes,
// incoming sales with kitchen orders, registration announcements and
// acknowledgements. It is the feed's single Handler.
type FeedService struct {
	records domainRepo.RecordStore
	session *Session
	orders  *OrderService
	log     zerolog.Logger

	feed    Sender
	reauth  func(ctx context.Context) error
	onReset func(ctx context.Context)
}

// NewFeedService creates a new feed service
func NewFeedService(records domainRepo.RecordStore, session *Session, orders *OrderService, log zerolog.Logger) *FeedService {
	return &FeedService{
		records: records,
		session: session,
		orders:  orders,
		log:     log.With().Str("component", "feedsvc").Logger(),
	}
}

// SetFeed installs the outbound feed once it exists; the feed itself is
// constructed with this service as its handler.
func (s *FeedService) SetFeed(feed Sender) {
	s.feed = feed
}

// SetReauth installs the re-authentication hook used on feed auth errors.
func (s *FeedService) SetReauth(fn func(ctx context.Context) error) {
	s.reauth = fn
}

// SetOnReset installs the full-resync callback fired on a reset event.
func (s *FeedService) SetOnReset(fn func(ctx context.Context)) {
	s.onReset = fn
}

// RestoreSeq loads the persisted feed position into the session so the first
// connect after a restart resyncs from where the terminal left off.
func (s *FeedService) RestoreSeq(ctx context.Context) error {
	var prefs entity.TerminalPrefs
	found, err := s.records.Get(ctx, enum.RecordPrefs, enum.SingletonKey, &prefs)
	if err != nil || !found {
		return err
	}
	s.session.SetLastSeq(prefs.LastSeq)
	return nil
}

// HandleEvent dispatches one feed event. Unknown kinds never reach this
// point; every known kind is handled here.
func (s *FeedService) HandleEvent(ctx context.Context, evt *realtime.Event) {
	if evt.Seq > 0 {
		s.session.SetLastSeq(evt.Seq)
		prefs := entity.TerminalPrefs{LastSeq: s.session.LastSeq()}
		if err := s.records.Put(ctx, enum.RecordPrefs, enum.SingletonKey, &prefs); err != nil {
			s.log.Warn().Err(err).Msg("feed position not persisted")
		}
	}

	var err error
	switch evt.Kind {
	case enum.EventItem:
		err = s.mergeOrDelete(ctx, enum.RecordItem, evt.Data, func() (string, any, error) {
			var item entity.Item
			if err := json.Unmarshal(evt.Data, &item); err != nil {
				return "", nil, err
			}
			return item.Key(), &item, nil
		})

	case enum.EventCustomer:
		err = s.mergeOrDelete(ctx, enum.RecordCustomer, evt.Data, func() (string, any, error) {
			var customer entity.Customer
			if err := json.Unmarshal(evt.Data, &customer); err != nil {
				return "", nil, err
			}
			return customer.Key(), &customer, nil
		})

	case enum.EventSale:
		var sale entity.Sale
		if err = json.Unmarshal(evt.Data, &sale); err == nil {
			err = s.orders.HandleIncomingSale(ctx, &sale)
		}

	case enum.EventConfig:
		var cfg entity.TerminalConfig
		if err = json.Unmarshal(evt.Data, &cfg); err == nil {
			if err = s.records.Put(ctx, enum.RecordConfig, enum.SingletonKey, &cfg); err == nil {
				if err = storeTaxRules(ctx, s.records, &cfg); err == nil {
					s.session.SetConfig(&cfg)
				}
			}
		}

	case enum.EventRegReq:
		err = s.announceIdentity()

	case enum.EventKitchenAck:
		var ref string
		if err = json.Unmarshal(evt.Data, &ref); err == nil {
			err = s.orders.MarkReceived(ctx, ref)
		}

	case enum.EventMsg:
		var msg string
		if json.Unmarshal(evt.Data, &msg) == nil && msg != "" {
			s.log.Info().Str("message", msg).Msg("server broadcast")
		}

	case enum.EventReset:
		s.log.Warn().Msg("server requested a full resync")
		if s.onReset != nil {
			s.onReset(ctx)
		}

	case enum.EventError:
		s.handleError(ctx, evt.Data)
	}

	if err != nil {
		s.log.Warn().Err(err).Str("kind", string(evt.Kind)).Msg("feed event not applied")
	}
}

// mergeOrDelete applies one catalog-style event. The payload is either the
// full entity to merge, or a deletion marker: a bare id, a comma-separated
// id list, or an object carrying a removal flag.
func (s *FeedService) mergeOrDelete(ctx context.Context, kind enum.RecordKind, data json.RawMessage, decode func() (string, any, error)) error {
	if ids, ok := deletionIDs(data); ok {
		for _, id := range ids {
			if err := s.records.Remove(ctx, kind, id); err != nil {
				return err
			}
		}
		return nil
	}

	key, value, err := decode()
	if err != nil {
		return err
	}
	return s.records.Put(ctx, kind, key, value)
}

// deletionIDs recognizes the three deletion marker shapes.
func deletionIDs(data json.RawMessage) ([]string, bool) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, false
	}

	switch trimmed[0] {
	case '{':
		var marker struct {
			ID     json.Number `json:"id"`
			Remove bool        `json:"remove"`
		}
		if err := json.Unmarshal(data, &marker); err != nil || !marker.Remove {
			return nil, false
		}
		return []string{marker.ID.String()}, true

	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, false
		}
		var ids []string
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if _, err := strconv.ParseInt(part, 10, 64); err != nil {
				return nil, false
			}
			ids = append(ids, part)
		}
		return ids, len(ids) > 0

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, false
		}
		if _, err := n.Int64(); err != nil {
			return nil, false
		}
		return []string{n.String()}, true
	}
}

// announceIdentity replies to a registration request with this device's
// identity so the server can rebuild its device roster.
func (s *FeedService) announceIdentity() error {
	if s.feed == nil {
		return nil
	}
	device := s.session.Device()
	return s.feed.Send(map[string]any{
		"a": "reg",
		"data": map[string]any{
			"deviceId":   device.DeviceID,
			"locationId": device.LocationID,
			"name":       device.Name,
			"uuid":       device.UUID,
		},
	})
}

// handleError processes a server-pushed feed error. An auth error gets one
// re-authentication and an immediate reconnect; anything else is logged.
func (s *FeedService) handleError(ctx context.Context, data json.RawMessage) {
	var serverErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &serverErr); err != nil {
		s.log.Warn().Err(err).Msg("unparseable feed error event")
		return
	}

	if serverErr.Code != "auth" {
		s.log.Warn().Str("code", serverErr.Code).Str("message", serverErr.Message).Msg("feed error")
		return
	}

	if s.reauth == nil {
		return
	}
	if err := s.reauth(ctx); err != nil {
		s.log.Error().Err(err).Msg("feed re-authentication failed")
		return
	}
	s.log.Info().Msg("feed session renewed, reconnecting")
	if s.feed != nil {
		s.feed.Kick()
	}
}

// SendKitchenAck confirms receipt of a kitchen order to the till that sent
// it. The include map is keyed by the originating device id so the server
// routes the ack to that device only; a sale without one is broadcast.
func (s *FeedService) SendKitchenAck(_ context.Context, saleRef string, deviceID int64) error {
	if s.feed == nil {
		return nil
	}
	var include map[string]bool
	if deviceID > 0 {
		include = map[string]bool{strconv.FormatInt(deviceID, 10): true}
	}
	return s.feed.Send(map[string]any{
		"include": include,
		"data": map[string]any{
			"a":    "kitchenack",
			"data": saleRef,
		},
	})
}
