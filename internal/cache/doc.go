// Package cache holds the disposable read cache in front of snapshot queries.
//
// Two key-value backends implement Store: RedisStore for production and
// MemoryStore for tests and single-process deployments. ReadCache builds
// versioned keys on top of a Store so that InvalidateAll makes every
// previously cached page unreachable with a single counter increment.
package cache
