// Package llm provides the structured-completion language model provider
// used by the scheduling pipeline.
//
// The provider wraps the OpenAI chat completions API and constrains every
// response to a caller-supplied JSON schema. Output that fails to unmarshal
// is run through a JSON repair pass before being rejected; unrecoverable
// output surfaces as a scheduler.ParseError carrying the raw model text for
// diagnosis.
package llm
