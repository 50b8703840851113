package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
	"github.com/opentill/terminal/pkg/apperror"
)

func pinHash(t *testing.T, pin string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func sessionEngine(t *testing.T) (*testEngine, *SessionService) {
	e := newTestEngine(t)
	e.pos.roster = []entity.CachedUser{
		{ID: 42, Username: "amy", PinHash: pinHash(t, "1234"), IsAdmin: true},
		{ID: 43, Username: "ben", PinHash: pinHash(t, "9999")},
	}
	svc := NewSessionService(e.client, e.records, e.conn, e.session, DeviceSetup{Name: "till-1", LocationID: 3}, zerolog.Nop())
	return e, svc
}

func TestEnsureDeviceRegistersOnFirstRun(t *testing.T) {
	e, svc := sessionEngine(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureDevice(ctx))
	device := e.session.Device()
	assert.Equal(t, int64(99), device.DeviceID)
	assert.Equal(t, "till-1", device.Name)
	assert.NotEmpty(t, device.UUID)

	// Second start reuses the persisted identity without a server call.
	before := len(e.pos.actions())
	require.NoError(t, svc.EnsureDevice(ctx))
	assert.Len(t, e.pos.actions(), before)
}

func TestEnsureDeviceOfflineFirstRunFails(t *testing.T) {
	e, svc := sessionEngine(t)
	e.pos.down.Store(true)
	e.conn.ForceOffline("test")

	err := svc.EnsureDevice(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.IsConnection(err))
}

func TestLoginOnlineCachesRoster(t *testing.T) {
	e, svc := sessionEngine(t)
	ctx := context.Background()

	user, err := svc.Login(ctx, "amy", "1234")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.True(t, user.IsAdmin)
	assert.Equal(t, "server-token-1", e.client.Token())

	var cache entity.AuthCache
	found, err := e.records.Get(ctx, enum.RecordAuthCache, enum.SingletonKey, &cache)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, cache.Users, 2)
	assert.Equal(t, "renew-token-1", cache.RenewToken)
}

func TestLoginOfflineVerifiesCachedPin(t *testing.T) {
	e, svc := sessionEngine(t)
	ctx := context.Background()

	// Cache the roster while online, then drop the connection.
	_, err := svc.Login(ctx, "amy", "1234")
	require.NoError(t, err)
	e.pos.down.Store(true)
	e.conn.ForceOffline("test")

	user, err := svc.Login(ctx, "ben", "9999")
	require.NoError(t, err)
	assert.Equal(t, int64(43), user.ID)
	assert.Equal(t, int64(43), e.session.UserID())

	_, err = svc.Login(ctx, "ben", "0000")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindAuth))

	_, err = svc.Login(ctx, "nobody", "1234")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindAuth))
}

func TestLoginOfflineWithoutCache(t *testing.T) {
	e, svc := sessionEngine(t)
	e.pos.down.Store(true)
	e.conn.ForceOffline("test")

	_, err := svc.Login(context.Background(), "amy", "1234")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindAuth))
}

func TestLoginDegradesToOfflineMidOutage(t *testing.T) {
	e, svc := sessionEngine(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "amy", "1234")
	require.NoError(t, err)

	// Server goes away but the state machine has not noticed yet. The
	// online attempt fails with a connection error and the cached hash
	// takes over.
	e.pos.down.Store(true)
	user, err := svc.Login(ctx, "amy", "1234")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.False(t, e.conn.Online())
}

func TestRenewTokenUpdatesCache(t *testing.T) {
	e, svc := sessionEngine(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "amy", "1234")
	require.NoError(t, err)

	token, err := svc.renewToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "server-token-2", token)

	var cache entity.AuthCache
	_, err = e.records.Get(ctx, enum.RecordAuthCache, enum.SingletonKey, &cache)
	require.NoError(t, err)
	assert.Equal(t, "server-token-2", cache.Token)
	assert.Equal(t, "renew-token-2", cache.RenewToken)
	// The roster survives a renewal that does not carry one.
	assert.Len(t, cache.Users, 2)
}

func TestRefreshPullsSnapshot(t *testing.T) {
	e, svc := sessionEngine(t)
	ctx := context.Background()

	e.pos.config = &entity.TerminalConfig{
		CurrencyCode:         "NZD",
		RoundingDenomination: 10,
		TaxRules: map[string]entity.TaxRule{
			"gst": {ID: "gst", Name: "GST", Rate: 0.15, Inclusive: true},
		},
	}
	e.pos.items = []entity.Item{{ID: 11, Name: "flat white", Price: 450}}
	e.pos.customers = []entity.Customer{{ID: 5, Name: "Ada"}}
	e.pos.openSales = []entity.Sale{*cashSale("ref-open", 450)}

	require.NoError(t, svc.Refresh(ctx))

	assert.Equal(t, int64(10), e.session.Config().RoundingDenomination)
	for kind, want := range map[enum.RecordKind]int64{
		enum.RecordItem:     1,
		enum.RecordCustomer: 1,
		enum.RecordSale:     1,
		enum.RecordTaxRule:  1,
	} {
		count, err := e.records.Count(ctx, kind)
		require.NoError(t, err)
		assert.Equal(t, want, count, string(kind))
	}
}

func TestRefreshDegradesToCachedSnapshot(t *testing.T) {
	e, svc := sessionEngine(t)
	ctx := context.Background()

	e.pos.config = &entity.TerminalConfig{CurrencyCode: "NZD"}
	require.NoError(t, svc.Refresh(ctx))

	e.pos.down.Store(true)
	// Still nominally online; the failing pull must flip the mode and fall
	// back to the cache.
	require.NoError(t, svc.Refresh(ctx))
	assert.False(t, e.conn.Online())
	assert.Equal(t, "NZD", e.session.Config().CurrencyCode)
}

func TestRefreshFatalWithoutCache(t *testing.T) {
	e, svc := sessionEngine(t)
	e.pos.down.Store(true)

	err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.IsConnection(err))
}

func TestDecommissionRemovesRegistration(t *testing.T) {
	e, svc := sessionEngine(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureDevice(ctx))
	_, err := svc.Login(ctx, "amy", "1234")
	require.NoError(t, err)

	require.NoError(t, svc.Decommission(ctx))
	assert.Contains(t, e.pos.actions(), "devices/registrations/delete")

	// Identity and auth cache are wiped; a restart must re-register.
	found, err := e.records.Get(ctx, enum.RecordDevice, enum.SingletonKey, nil)
	require.NoError(t, err)
	assert.False(t, found)
	found, err = e.records.Get(ctx, enum.RecordAuthCache, enum.SingletonKey, nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDecommissionRefusedOffline(t *testing.T) {
	e, svc := sessionEngine(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureDevice(ctx))
	e.conn.ForceOffline("test")

	err := svc.Decommission(ctx)
	require.Error(t, err)
	assert.True(t, apperror.IsConnection(err))
}
