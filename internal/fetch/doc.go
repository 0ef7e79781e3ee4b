// Package fetch retrieves live widget data through the upstream data proxy.
//
// The client posts a source descriptor to the proxy's fetch endpoint and
// returns the raw payload. It retries transient failures with exponential
// backoff, honors an optional rate limit, and trips a circuit breaker on
// sustained proxy failure. Payload normalization and static fallbacks are
// the controller's job, not the client's.
package fetch
