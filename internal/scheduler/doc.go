// Package scheduler implements the email-to-calendar decision pipeline.
//
// The pipeline runs in two model-mediated stages followed by deterministic
// resolution:
//   - Router: classifies a message as a new-event request or something else,
//     with a confidence score and a cleaned restatement of the request.
//   - Extractor: turns a confirmed request into structured event details,
//     anchored to the current date so relative expressions like "next
//     Tuesday" resolve deterministically.
//   - Resolver: attaches the configured timezone, applies the duration
//     policy, and produces an event ready for calendar insertion.
//
// A confidence gate between routing and extraction suppresses low-certainty
// classifications. Messages below the threshold, or classified as non-events,
// are skipped rather than failed. Each message is processed independently;
// one message's failure never aborts the batch.
//
// External collaborators (the language model, the mailbox, and the calendar)
// are consumed through narrow interfaces so the deterministic parts of the
// pipeline can be tested with fakes.
package scheduler
