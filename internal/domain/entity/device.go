package entity

import "time"

// DeviceIdentity is the terminal's registered identity, assigned by the
// server at setup and persisted locally. UUID is generated on first run and
// re-announced whenever the feed sends a registration challenge.
type DeviceIdentity struct {
	DeviceID   int64  `json:"deviceId"`
	LocationID int64  `json:"locationId"`
	Name       string `json:"name"`
	UUID       string `json:"uuid"`
}

// AuthCache is the last successful authentication snapshot. It lets the
// terminal verify operators and reuse the session token while offline.
type AuthCache struct {
	Token      string       `json:"token"`
	RenewToken string       `json:"renewToken,omitempty"`
	Users      []CachedUser `json:"users"`
	CachedAt   time.Time    `json:"cachedAt"`
}

// CachedUser is an operator known to this device. PinHash is a bcrypt hash
// of the operator's PIN, usable for offline login verification.
type CachedUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	PinHash  string `json:"pinHash"`
	IsAdmin  bool   `json:"isAdmin,omitempty"`
}

// FindUser looks up a cached operator by username.
func (a *AuthCache) FindUser(username string) (CachedUser, bool) {
	for _, u := range a.Users {
		if u.Username == username {
			return u, true
		}
	}
	return CachedUser{}, false
}
