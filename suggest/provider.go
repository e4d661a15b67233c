// Package suggest talks to an AI service to obtain replacement locator
// suggestions. The service speaks an OpenAI-compatible chat-completions
// protocol.
package suggest

import "context"

// Provider is the capability a suggestion source must offer. Any type with
// these two methods qualifies; there is no base implementation to embed.
type Provider interface {
	// Suggest sends the prompts and returns the raw completion text. The
	// caller parses it for a structured locator. An error means no
	// suggestion is available for this attempt.
	Suggest(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Available reports whether the provider is reachable. Implementations
	// memoize the answer; once a provider has been marked unavailable it
	// stays unavailable for its lifetime.
	Available(ctx context.Context) bool
}
