// Package cmd implements the inboxcal command line interface.
package cmd
