// Package orchestrator is the delivery decision layer of the messaging
// subsystem. Given a message and a target user it loads the user's
// preferences, refuses delivery without consent, defers non-urgent sends
// inside quiet hours, resolves an ordered list of channel candidates, and
// walks that list sequentially until one adapter accepts the message. Every
// attempt is recorded in the returned report.
//
// Broadcast fans a message out to many users with bounded concurrency,
// isolating recipients from each other's failures.
package orchestrator
