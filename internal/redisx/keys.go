package redisx

import "time"

const (
	// Bearer sessions: session:{token} -> user_id
	KeySession = "session:%s"

	// Cached order response body: order_body:{user_id}:{order_id} -> order
	// JSON. The owner id in the key scopes the cache like the reads it
	// fronts. Invalidated on every status transition.
	KeyOrderBody = "order_body:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLSession    = 7 * 24 * time.Hour // matches the original token lifetime
	TTLOrderCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
)
