// Package gmail provides Gmail API integration for the calendar agent.
//
// The client lists unread inbox messages, fetches and normalizes their
// plaintext bodies, and marks processed messages as read so they are not
// scanned again.
package gmail
