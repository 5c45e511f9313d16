// Package simerr names the fatal error kinds the simulation core
// distinguishes. Every error raised by routing, material transfer, or
// registry mutation wraps one of these sentinels so callers can classify a
// failure with errors.Is without parsing strings.
package simerr

import "errors"

var (
	// ErrNoDestination is raised by Message.SendOn on an UP message whose
	// next destination has not been set.
	ErrNoDestination = errors.New("cyclus: no destination set for outgoing message")

	// ErrCircular is raised by Message.SendOn when an UP message's next
	// destination is its originator, before the direction has flipped. A
	// next destination equal to the current holder is rejected earlier, by
	// SetNextDest, with ErrInvalidRecipient.
	ErrCircular = errors.New("cyclus: circular message routing")

	// ErrTerminalMessage is raised by any send on a DONE message.
	ErrTerminalMessage = errors.New("cyclus: message is already done")

	// ErrNotSupplier is raised when a facility receives an order naming a
	// different agent as supplier.
	ErrNotSupplier = errors.New("cyclus: facility is not the supplier of this order")

	// ErrCommodityMismatch is raised when a facility is asked to ship a
	// commodity other than its configured output.
	ErrCommodityMismatch = errors.New("cyclus: commodity mismatch")

	// ErrConservation is raised when resource arithmetic drifts beyond the
	// tolerated epsilon. Always a bug, never a recoverable condition.
	ErrConservation = errors.New("cyclus: mass conservation violated")

	// ErrRegistryFrozen is raised by any attempt to register a commodity or
	// agent after scenario load has completed.
	ErrRegistryFrozen = errors.New("cyclus: registry is frozen")

	// ErrInvalidRecipient is raised by SetNextDest when the proposed next
	// hop equals the message's current holder.
	ErrInvalidRecipient = errors.New("cyclus: invalid recipient")

	// ErrIO covers scenario and plugin load failures.
	ErrIO = errors.New("cyclus: I/O error loading scenario")
)
