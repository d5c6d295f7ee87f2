// Package metadata is a client for the external comic metadata search API.
//
// Requests are rate limited with a token bucket, responses are cached for a
// configurable TTL, and concurrent identical searches share one request.
// Transient failures (5xx, 429, network errors) are retried with backoff.
package metadata
