// Package calendar provides Google Calendar API integration for the agent.
//
// The client inserts fully resolved events on a single configured calendar,
// with the message sender attached as the sole attendee and a popup reminder
// replacing the calendar defaults.
package calendar
