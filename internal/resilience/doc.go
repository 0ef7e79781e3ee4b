/*
Package resilience guards calls to the data proxy with a circuit breaker.

Widget data flows through a single upstream proxy, so a struggling
upstream would otherwise absorb every refresh into a slow failure. The
breaker fails those calls fast once the proxy looks unhealthy and lets
a trickle of trial requests decide when to resume.

	breaker := resilience.New("data-proxy", resilience.Settings{
		MaxRequests: 5,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 10
		},
	})

	payload, err := breaker.Execute(func() (any, error) {
		return client.Fetch(ctx, source)
	})

A closed breaker passes everything through and tallies outcomes per
Interval window. When ReadyToTrip fires, the breaker opens and rejects
with ErrCircuitOpen until Timeout elapses. It then admits up to
MaxRequests trial calls; a clean run closes it, a single failure
reopens it.
*/
package resilience
