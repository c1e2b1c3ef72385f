package cache

import "strconv"

// Typed key constructors. The services share one Redis keyspace, so
// every key goes through these instead of ad-hoc concatenation.
func ProductKey(id int64) string { return "product:" + strconv.FormatInt(id, 10) }
func UserKey(id int64) string    { return "user:" + strconv.FormatInt(id, 10) }

// PurchasesKey caches a user's aggregated purchased view. Invalidate it
// whenever an order for that user commits.
func PurchasesKey(userID int64) string { return "orders:" + strconv.FormatInt(userID, 10) }

// DedupKey marks a consumed event id for a consumer group.
func DedupKey(consumer, eventID string) string { return "dedup:" + consumer + ":" + eventID }
