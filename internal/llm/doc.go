// Package llm provides interchangeable language model backends for derivative
// tariff checks. Gemini and OpenAI backends share one response contract: each
// operation declares a JSON schema, requests deterministic decoding, and
// decodes the answer through a typed parse-then-validate step.
package llm
