// Package schema defines the canonical window/tab/field model every provider
// returns, the form data records collected against it, and the Source and
// Document wrappers loaders use to describe where a window document came
// from. Adapters in pkg/adapter translate external window dialects into these
// types; nothing downstream of an adapter looks at the external shape again.
package schema
