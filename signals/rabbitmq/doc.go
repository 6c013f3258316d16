// Package rabbitmq relays emitted signals to a RabbitMQ exchange.
//
// A Relay registered as a signal handler defers its publish until the txn
// unit carried by the emit commits, so consumers never see a signal whose
// database writes were rolled back. Outside a unit it publishes immediately.
// Publishes go through a circuit breaker that fails fast while the broker is
// unreachable.
package rabbitmq
