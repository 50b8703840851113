package api

import (
	"context"

	"github.com/opentill/terminal/internal/domain/entity"
)

// AuthRequest authenticates an operator on this device.
type AuthRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	DeviceUUID string `json:"deviceUuid"`
}

// AuthResult is the server's authentication response: a session token, a
// renewal token, and the operator roster this device may verify offline.
type AuthResult struct {
	Token      string              `json:"token"`
	RenewToken string              `json:"renewToken"`
	Users      []entity.CachedUser `json:"users"`
}

// Auth authenticates an operator and opens a session.
func (c *Client) Auth(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	var result AuthResult
	if err := c.Post(ctx, "auth", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AuthRenew exchanges the renewal token for a fresh session token. Called
// from the session service's RenewFunc, never from Client.do itself.
func (c *Client) AuthRenew(ctx context.Context, renewToken string) (*AuthResult, error) {
	var result AuthResult
	payload := map[string]string{"renewToken": renewToken}
	if err := c.do(ctx, c.http, "POST", "authrenew", payload, &result, false); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetConfig fetches the terminal configuration snapshot.
func (c *Client) GetConfig(ctx context.Context) (*entity.TerminalConfig, error) {
	var cfg entity.TerminalConfig
	if err := c.Get(ctx, "config/get", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetItems fetches the full catalog.
func (c *Client) GetItems(ctx context.Context) ([]entity.Item, error) {
	var items []entity.Item
	if err := c.Get(ctx, "items/get", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetCustomers fetches the customer roster.
func (c *Client) GetCustomers(ctx context.Context) ([]entity.Customer, error) {
	var customers []entity.Customer
	if err := c.Get(ctx, "customers/get", &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

// GetSales fetches the current open/recent sales for this location.
func (c *Client) GetSales(ctx context.Context) ([]entity.Sale, error) {
	var sales []entity.Sale
	if err := c.Get(ctx, "sales/get", &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

// AddSale uploads a sale. The server treats the ref as an idempotency key:
// re-uploading an accepted ref overwrites rather than duplicates. The
// response is the authoritative record, including the server-assigned id.
func (c *Client) AddSale(ctx context.Context, sale *entity.Sale) (*entity.Sale, error) {
	var result entity.Sale
	if err := c.Post(ctx, "sales/add", sale, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// VoidSale uploads a void of an already-synced sale.
func (c *Client) VoidSale(ctx context.Context, sale *entity.Sale) (*entity.Sale, error) {
	var result entity.Sale
	if err := c.Post(ctx, "sales/void", sale, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchQuery filters a server-side sales search.
type SearchQuery struct {
	Ref      string `json:"ref,omitempty"`
	Customer string `json:"customer,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
}

// SearchSales runs a server-side sales search.
func (c *Client) SearchSales(ctx context.Context, query *SearchQuery) ([]entity.Sale, error) {
	var sales []entity.Sale
	if err := c.Post(ctx, "sales/search", query, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

// NotesUpdate attaches operator notes to a sale.
type NotesUpdate struct {
	Ref   string `json:"ref"`
	Notes string `json:"notes"`
}

// UpdateNotes uploads a notes change for a sale.
func (c *Client) UpdateNotes(ctx context.Context, update *NotesUpdate) error {
	return c.Post(ctx, "sales/updatenotes", update, nil)
}

// SetOrder uploads an order-bearing sale so other terminals receive the
// kitchen tickets.
func (c *Client) SetOrder(ctx context.Context, sale *entity.Sale) (*entity.Sale, error) {
	var result entity.Sale
	if err := c.Post(ctx, "orders/set", sale, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// OrderRemoval identifies an order to drop from a sale.
type OrderRemoval struct {
	Ref     string `json:"ref"`
	OrderID int64  `json:"orderId"`
}

// RemoveOrder uploads an order removal.
func (c *Client) RemoveOrder(ctx context.Context, removal *OrderRemoval) error {
	return c.Post(ctx, "orders/remove", removal, nil)
}

// SetupRequest registers this device with the server on first run.
type SetupRequest struct {
	UUID       string `json:"uuid"`
	Name       string `json:"name"`
	LocationID int64  `json:"locationId"`
}

// SetupDevice registers the device and returns its assigned identity.
func (c *Client) SetupDevice(ctx context.Context, req *SetupRequest) (*entity.DeviceIdentity, error) {
	var identity entity.DeviceIdentity
	if err := c.Post(ctx, "devices/setup", req, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// DeleteRegistration removes this device's registration on decommission.
func (c *Client) DeleteRegistration(ctx context.Context, deviceUUID string) error {
	return c.Post(ctx, "devices/registrations/delete", map[string]string{"uuid": deviceUUID}, nil)
}
