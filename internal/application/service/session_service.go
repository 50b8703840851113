package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
	domainRepo "github.com/opentill/terminal/internal/domain/repository"
	"github.com/opentill/terminal/internal/infrastructure/api"
	"github.com/opentill/terminal/pkg/apperror"
	"github.com/opentill/terminal/pkg/utils"
)

// renewAhead is how close to expiry the session token may get before the
// renew loop refreshes it proactively.
const renewAhead = 10 * time.Minute

// DeviceSetup carries the registration parameters for a first-run device.
type DeviceSetup struct {
	Name       string
	LocationID int64
}

// SessionService owns the server session: device registration, operator
// login (online against the server, offline against the cached bcrypt PIN
// hashes), token renewal, and the startup pull of reference data into the
// record store.
type SessionService struct {
	client  *api.Client
	records domainRepo.RecordStore
	conn    *ConnectivityService
	session *Session
	setup   DeviceSetup
	log     zerolog.Logger
}

// NewSessionService creates a new session service
func NewSessionService(
	client *api.Client,
	records domainRepo.RecordStore,
	conn *ConnectivityService,
	session *Session,
	setup DeviceSetup,
	log zerolog.Logger,
) *SessionService {
	s := &SessionService{
		client:  client,
		records: records,
		conn:    conn,
		session: session,
		setup:   setup,
		log:     log.With().Str("component", "session").Logger(),
	}
	client.SetRenewFunc(s.renewToken)
	return s
}

// EnsureDevice loads the persisted device identity or, on first run,
// registers this device with the server. First run requires connectivity.
func (s *SessionService) EnsureDevice(ctx context.Context) error {
	var device entity.DeviceIdentity
	found, err := s.records.Get(ctx, enum.RecordDevice, enum.SingletonKey, &device)
	if err != nil {
		return err
	}
	if found {
		s.session.SetDevice(&device)
		return nil
	}

	if !s.conn.Online() {
		return apperror.NewConnectionError("device not registered and server unreachable", nil)
	}

	identity, err := s.client.SetupDevice(ctx, &api.SetupRequest{
		UUID:       uuid.NewString(),
		Name:       s.setup.Name,
		LocationID: s.setup.LocationID,
	})
	if err != nil {
		return err
	}
	if err := s.records.Put(ctx, enum.RecordDevice, enum.SingletonKey, identity); err != nil {
		return err
	}
	s.session.SetDevice(identity)
	s.log.Info().Int64("device_id", identity.DeviceID).Str("name", identity.Name).Msg("device registered")
	return nil
}

// Login authenticates an operator. While Online the server is asked and the
// resulting operator roster cached for offline use; while Offline the PIN is
// verified against the cached bcrypt hash. An outage during an online login
// degrades to the offline path.
func (s *SessionService) Login(ctx context.Context, username, pin string) (*entity.CachedUser, error) {
	if s.conn.Online() {
		user, err := s.loginOnline(ctx, username, pin)
		if err == nil {
			return user, nil
		}
		if !apperror.IsConnection(err) {
			return nil, err
		}
		s.conn.ForceOffline(err.Error())
	}
	return s.loginOffline(ctx, username, pin)
}

func (s *SessionService) loginOnline(ctx context.Context, username, pin string) (*entity.CachedUser, error) {
	result, err := s.client.Auth(ctx, &api.AuthRequest{
		Username:   username,
		Password:   pin,
		DeviceUUID: s.session.Device().UUID,
	})
	if err != nil {
		return nil, err
	}

	s.client.SetToken(result.Token)
	cache := &entity.AuthCache{
		Token:      result.Token,
		RenewToken: result.RenewToken,
		Users:      result.Users,
		CachedAt:   time.Now().UTC(),
	}
	if err := s.records.Put(ctx, enum.RecordAuthCache, enum.SingletonKey, cache); err != nil {
		return nil, err
	}

	user, ok := cache.FindUser(username)
	if !ok {
		// The server accepted the login but left the operator off the
		// roster; synthesize a minimal session user.
		user = entity.CachedUser{Username: username}
	}
	s.session.SetUser(&user)
	s.log.Info().Str("user", username).Msg("operator logged in")
	return &user, nil
}

func (s *SessionService) loginOffline(ctx context.Context, username, pin string) (*entity.CachedUser, error) {
	cache, err := s.authCache(ctx)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		return nil, apperror.NewAuthError("no cached credentials on this device")
	}

	user, ok := cache.FindUser(username)
	if !ok {
		return nil, apperror.NewAuthError("unknown operator")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte(pin)) != nil {
		return nil, apperror.NewAuthError("incorrect PIN")
	}

	s.client.SetToken(cache.Token)
	s.session.SetUser(&user)
	s.log.Info().Str("user", username).Msg("operator logged in offline")
	return &user, nil
}

// Logout clears the operator from the session. The server session token
// stays; it belongs to the device, not the operator.
func (s *SessionService) Logout() {
	s.session.SetUser(nil)
}

// renewToken is the api client's RenewFunc: exchange the cached renew token
// for a fresh session token and persist the updated cache.
func (s *SessionService) renewToken(ctx context.Context) (string, error) {
	cache, err := s.authCache(ctx)
	if err != nil {
		return "", err
	}
	if cache == nil || cache.RenewToken == "" {
		return "", errors.New("no renew token cached")
	}

	result, err := s.client.AuthRenew(ctx, cache.RenewToken)
	if err != nil {
		return "", err
	}

	cache.Token = result.Token
	if result.RenewToken != "" {
		cache.RenewToken = result.RenewToken
	}
	if len(result.Users) > 0 {
		cache.Users = result.Users
	}
	cache.CachedAt = time.Now().UTC()
	if err := s.records.Put(ctx, enum.RecordAuthCache, enum.SingletonKey, cache); err != nil {
		return "", err
	}
	s.log.Debug().Msg("session token renewed")
	return result.Token, nil
}

// Renew refreshes the server session token immediately. Used by the feed
// when the server rejects its subscription token.
func (s *SessionService) Renew(ctx context.Context) error {
	token, err := s.renewToken(ctx)
	if err != nil {
		return err
	}
	s.client.SetToken(token)
	return nil
}

// StartRenewLoop renews the session token shortly before it expires instead
// of waiting for a request to be rejected. Runs until ctx is cancelled.
func (s *SessionService) StartRenewLoop(ctx context.Context, check time.Duration) {
	go func() {
		ticker := time.NewTicker(check)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if !s.conn.Online() {
				continue
			}
			token := s.client.Token()
			if token == "" || !utils.TokenExpiresWithin(token, renewAhead) {
				continue
			}
			fresh, err := s.renewToken(ctx)
			if err != nil {
				s.log.Warn().Err(err).Msg("proactive token renewal failed")
				continue
			}
			s.client.SetToken(fresh)
		}
	}()
}

// Refresh pulls the full reference snapshot into the record store: config,
// catalog, customers and open sales. A connection error degrades to the
// cached snapshot when one exists and is fatal when it does not.
func (s *SessionService) Refresh(ctx context.Context) error {
	if !s.conn.Online() {
		return s.loadCachedConfig(ctx)
	}

	cfg, err := s.client.GetConfig(ctx)
	if err != nil {
		return s.degrade(ctx, err)
	}
	if err := s.records.Put(ctx, enum.RecordConfig, enum.SingletonKey, cfg); err != nil {
		return err
	}
	if err := storeTaxRules(ctx, s.records, cfg); err != nil {
		return err
	}
	s.session.SetConfig(cfg)

	items, err := s.client.GetItems(ctx)
	if err != nil {
		return s.degrade(ctx, err)
	}
	if err := s.records.RemoveAll(ctx, enum.RecordItem); err != nil {
		return err
	}
	for i := range items {
		if err := s.records.Put(ctx, enum.RecordItem, items[i].Key(), &items[i]); err != nil {
			return err
		}
	}

	customers, err := s.client.GetCustomers(ctx)
	if err != nil {
		return s.degrade(ctx, err)
	}
	if err := s.records.RemoveAll(ctx, enum.RecordCustomer); err != nil {
		return err
	}
	for i := range customers {
		if err := s.records.Put(ctx, enum.RecordCustomer, customers[i].Key(), &customers[i]); err != nil {
			return err
		}
	}

	sales, err := s.client.GetSales(ctx)
	if err != nil {
		return s.degrade(ctx, err)
	}
	for i := range sales {
		if err := s.records.Put(ctx, enum.RecordSale, sales[i].Ref, &sales[i]); err != nil {
			return err
		}
	}

	s.log.Info().
		Int("items", len(items)).
		Int("customers", len(customers)).
		Int("sales", len(sales)).
		Msg("reference snapshot refreshed")
	return nil
}

// degrade falls back to the cached snapshot on a connection error mid pull.
func (s *SessionService) degrade(ctx context.Context, err error) error {
	if !apperror.IsConnection(err) {
		return err
	}
	s.conn.ForceOffline(err.Error())
	return s.loadCachedConfig(ctx)
}

// loadCachedConfig promotes the stored config into the session. A device
// with no cached config cannot trade.
func (s *SessionService) loadCachedConfig(ctx context.Context) error {
	var cfg entity.TerminalConfig
	found, err := s.records.Get(ctx, enum.RecordConfig, enum.SingletonKey, &cfg)
	if err != nil {
		return err
	}
	if !found {
		return apperror.NewConnectionError("no cached configuration and server unreachable", nil)
	}
	s.session.SetConfig(&cfg)
	s.log.Warn().Msg("operating from cached reference snapshot")
	return nil
}

func (s *SessionService) authCache(ctx context.Context) (*entity.AuthCache, error) {
	var cache entity.AuthCache
	found, err := s.records.Get(ctx, enum.RecordAuthCache, enum.SingletonKey, &cache)
	if err != nil || !found {
		return nil, err
	}
	return &cache, nil
}

// Decommission deletes this device's registration from the server and wipes
// its local identity and auth cache. The terminal must be re-registered
// before it can trade again.
func (s *SessionService) Decommission(ctx context.Context) error {
	if !s.conn.Online() {
		return apperror.NewConnectionError("cannot decommission while offline", nil)
	}

	device := s.session.Device()
	if err := s.client.DeleteRegistration(ctx, device.UUID); err != nil {
		return err
	}
	if err := s.records.Remove(ctx, enum.RecordDevice, enum.SingletonKey); err != nil {
		return err
	}
	if err := s.records.Remove(ctx, enum.RecordAuthCache, enum.SingletonKey); err != nil {
		return err
	}
	s.session.SetUser(nil)
	s.client.SetToken("")
	s.log.Info().Str("uuid", device.UUID).Msg("device decommissioned")
	return nil
}

// storeTaxRules mirrors the configuration's tax rules into their own record
// kind so they can be listed and inspected independently of the config blob.
func storeTaxRules(ctx context.Context, records domainRepo.RecordStore, cfg *entity.TerminalConfig) error {
	if err := records.RemoveAll(ctx, enum.RecordTaxRule); err != nil {
		return err
	}
	for id := range cfg.TaxRules {
		rule := cfg.TaxRules[id]
		if err := records.Put(ctx, enum.RecordTaxRule, id, &rule); err != nil {
			return err
		}
	}
	return nil
}
