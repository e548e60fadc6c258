// Package google provides OAuth2 authentication and token management for
// Google APIs.
//
// Tokens are persisted per account in the user cache directory. The
// TokenProvider interface allows the file-based storage to be swapped for a
// fake in tests, keeping ambient file-system state out of the pipeline.
package google
