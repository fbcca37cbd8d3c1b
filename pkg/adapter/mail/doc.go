// Package mail implements the email channel adapter on top of Postmark's
// transactional API. Plain text, rich HTML, and Postmark template messages
// map directly; media types degrade to a linked body. The channel is
// one-way: replies are handled by Postmark inbound streams.
package mail
