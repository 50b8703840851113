package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
	"github.com/opentill/terminal/internal/infrastructure/realtime"
)

type fakeFeed struct {
	sent   []any
	kicked int
}

func (f *fakeFeed) Send(v any) error {
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeFeed) Kick() {
	f.kicked++
}

func feedEngine(t *testing.T) (*testEngine, *FeedService, *fakeFeed) {
	e := newTestEngine(t)
	orders := NewOrderService(e.records, e.session, zerolog.Nop())
	svc := NewFeedService(e.records, e.session, orders, zerolog.Nop())
	feed := &fakeFeed{}
	svc.SetFeed(feed)
	orders.SetAckSender(svc)
	return e, svc, feed
}

func event(kind enum.EventKind, seq int64, data any) *realtime.Event {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	return &realtime.Event{Kind: kind, Seq: seq, Data: raw}
}

func TestFeedItemMerge(t *testing.T) {
	e, svc, _ := feedEngine(t)
	ctx := context.Background()

	svc.HandleEvent(ctx, event(enum.EventItem, 1, &entity.Item{ID: 11, Name: "flat white"}))

	var item entity.Item
	found, err := e.records.Get(ctx, enum.RecordItem, "11", &item)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "flat white", item.Name)
	assert.Equal(t, int64(1), e.session.LastSeq())
}

func TestFeedItemDeletionMarkers(t *testing.T) {
	e, svc, _ := feedEngine(t)
	ctx := context.Background()

	for _, id := range []int64{11, 12, 13} {
		item := &entity.Item{ID: id}
		require.NoError(t, e.records.Put(ctx, enum.RecordItem, item.Key(), item))
	}

	// Bare numeric id.
	svc.HandleEvent(ctx, &realtime.Event{Kind: enum.EventItem, Data: json.RawMessage(`11`)})
	// Comma-separated id list.
	svc.HandleEvent(ctx, &realtime.Event{Kind: enum.EventItem, Data: json.RawMessage(`"12, 13"`)})

	count, err := e.records.Count(ctx, enum.RecordItem)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFeedItemRemovalFlagObject(t *testing.T) {
	e, svc, _ := feedEngine(t)
	ctx := context.Background()

	require.NoError(t, e.records.Put(ctx, enum.RecordItem, "11", &entity.Item{ID: 11}))
	svc.HandleEvent(ctx, &realtime.Event{Kind: enum.EventItem, Data: json.RawMessage(`{"id":11,"remove":true}`)})

	found, err := e.records.Get(ctx, enum.RecordItem, "11", &entity.Item{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFeedCustomerMerge(t *testing.T) {
	e, svc, _ := feedEngine(t)
	ctx := context.Background()

	svc.HandleEvent(ctx, event(enum.EventCustomer, 2, &entity.Customer{ID: 5, Name: "Ada"}))

	var customer entity.Customer
	found, err := e.records.Get(ctx, enum.RecordCustomer, "5", &customer)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Ada", customer.Name)
}

func TestFeedConfigPush(t *testing.T) {
	e, svc, _ := feedEngine(t)
	ctx := context.Background()

	svc.HandleEvent(ctx, event(enum.EventConfig, 3, &entity.TerminalConfig{CurrencyCode: "NZD", KitchenDisplay: true}))

	assert.Equal(t, "NZD", e.session.Config().CurrencyCode)
	var cfg entity.TerminalConfig
	found, err := e.records.Get(ctx, enum.RecordConfig, enum.SingletonKey, &cfg)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, cfg.KitchenDisplay)
}

func TestFeedConfigPushMirrorsTaxRules(t *testing.T) {
	e, svc, _ := feedEngine(t)
	ctx := context.Background()

	svc.HandleEvent(ctx, event(enum.EventConfig, 3, &entity.TerminalConfig{
		TaxRules: map[string]entity.TaxRule{
			"gst": {ID: "gst", Name: "GST", Rate: 0.15, Inclusive: true},
		},
	}))

	var rule entity.TaxRule
	found, err := e.records.Get(ctx, enum.RecordTaxRule, "gst", &rule)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0.15, rule.Rate)

	// A later config without the rule retires its record.
	svc.HandleEvent(ctx, event(enum.EventConfig, 4, &entity.TerminalConfig{}))
	found, err = e.records.Get(ctx, enum.RecordTaxRule, "gst", nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFeedSeqSurvivesRestart(t *testing.T) {
	e, svc, _ := feedEngine(t)
	ctx := context.Background()

	svc.HandleEvent(ctx, event(enum.EventMsg, 7, "hello"))
	require.Equal(t, int64(7), e.session.LastSeq())

	// Fresh session over the same store, as after a process restart.
	restarted := NewSession()
	orders := NewOrderService(e.records, restarted, zerolog.Nop())
	svc2 := NewFeedService(e.records, restarted, orders, zerolog.Nop())

	require.NoError(t, svc2.RestoreSeq(ctx))
	assert.Equal(t, int64(7), restarted.LastSeq())
}

func TestFeedSaleRoutedThroughOrders(t *testing.T) {
	e, svc, feed := feedEngine(t)
	e.session.SetConfig(&entity.TerminalConfig{KitchenDisplay: true})
	ctx := context.Background()

	sale := orderSale("ref-1", map[int64]*entity.Order{1: {ID: 1, Items: refs("x")}})
	sale.DeviceID = 42
	svc.HandleEvent(ctx, event(enum.EventSale, 4, sale))

	// Stored locally and acknowledged back to the sending device.
	found, err := e.records.Get(ctx, enum.RecordSale, "ref-1", &entity.Sale{})
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, feed.sent, 1)

	ack := feed.sent[0].(map[string]any)
	assert.Equal(t, map[string]bool{"42": true}, ack["include"])
	inner := ack["data"].(map[string]any)
	assert.Equal(t, "kitchenack", inner["a"])
	assert.Equal(t, "ref-1", inner["data"])
}

func TestKitchenAckWithoutDeviceBroadcasts(t *testing.T) {
	_, svc, feed := feedEngine(t)

	require.NoError(t, svc.SendKitchenAck(context.Background(), "ref-9", 0))

	require.Len(t, feed.sent, 1)
	ack := feed.sent[0].(map[string]any)
	assert.Nil(t, ack["include"])
}

func TestFeedKitchenAck(t *testing.T) {
	e, svc, _ := feedEngine(t)
	ctx := context.Background()

	sale := orderSale("ref-1", map[int64]*entity.Order{1: {ID: 1, Items: refs("x")}})
	require.NoError(t, e.records.Put(ctx, enum.RecordSale, sale.Ref, sale))

	svc.HandleEvent(ctx, event(enum.EventKitchenAck, 5, "ref-1"))

	var stored entity.Sale
	_, err := e.records.Get(ctx, enum.RecordSale, "ref-1", &stored)
	require.NoError(t, err)
	assert.True(t, stored.OrderData[1].Received)
}

func TestFeedRegistrationRequest(t *testing.T) {
	_, svc, feed := feedEngine(t)

	svc.HandleEvent(context.Background(), event(enum.EventRegReq, 6, nil))

	require.Len(t, feed.sent, 1)
	announce := feed.sent[0].(map[string]any)
	assert.Equal(t, "reg", announce["a"])
	data := announce["data"].(map[string]any)
	assert.Equal(t, int64(7), data["deviceId"])
}

func TestFeedAuthErrorReauthsOnce(t *testing.T) {
	_, svc, feed := feedEngine(t)

	reauths := 0
	svc.SetReauth(func(context.Context) error {
		reauths++
		return nil
	})

	svc.HandleEvent(context.Background(), event(enum.EventError, 0, map[string]string{"code": "auth", "message": "expired"}))

	assert.Equal(t, 1, reauths)
	assert.Equal(t, 1, feed.kicked)
}

func TestFeedNonAuthErrorOnlyLogged(t *testing.T) {
	_, svc, feed := feedEngine(t)

	reauths := 0
	svc.SetReauth(func(context.Context) error {
		reauths++
		return nil
	})

	svc.HandleEvent(context.Background(), event(enum.EventError, 0, map[string]string{"code": "server", "message": "boom"}))

	assert.Zero(t, reauths)
	assert.Zero(t, feed.kicked)
}

func TestFeedResetCallback(t *testing.T) {
	_, svc, _ := feedEngine(t)

	resets := 0
	svc.SetOnReset(func(context.Context) { resets++ })
	svc.HandleEvent(context.Background(), event(enum.EventReset, 0, nil))
	assert.Equal(t, 1, resets)
}

func TestFeedSeqNeverRegresses(t *testing.T) {
	e, svc, _ := feedEngine(t)
	ctx := context.Background()

	svc.HandleEvent(ctx, event(enum.EventMsg, 10, "hello tills"))
	svc.HandleEvent(ctx, event(enum.EventMsg, 4, "late replay"))
	assert.Equal(t, int64(10), e.session.LastSeq())
}
