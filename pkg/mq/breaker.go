package mq

import (
	"bugtracker/pkg/circuitbreaker"
)

// GuardedPublisher wraps a publisher with a circuit breaker so a dead
// broker fails fast instead of blocking every request that emits an
// event.
type GuardedPublisher struct {
	inner   *Publisher
	breaker *circuitbreaker.CircuitBreaker
}

func NewGuardedPublisher(inner *Publisher) *GuardedPublisher {
	return &GuardedPublisher{
		inner:   inner,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
	}
}

func (g *GuardedPublisher) Publish(routingKey string, payload any) error {
	return g.breaker.Execute(func() error {
		return g.inner.Publish(routingKey, payload)
	})
}

func (g *GuardedPublisher) Close() {
	g.inner.Close()
}
