package enum

// RecordKind namespaces the keys of the local record store. These are the
// durable client-side caches; they are opaque to the network protocol.
type RecordKind string

const (
	RecordConfig    RecordKind = "config"
	RecordItem      RecordKind = "item"
	RecordCustomer  RecordKind = "customer"
	RecordSale      RecordKind = "sale"
	RecordTaxRule   RecordKind = "taxrule"
	RecordAuthCache RecordKind = "authcache"
	RecordDevice    RecordKind = "device"
	RecordPrefs     RecordKind = "prefs"
)

// SingletonKey is the fixed key used for kinds that hold exactly one record
// (config, auth cache, device identity).
const SingletonKey = "current"
