// Package service orchestrates the core components of the matching
// engine: the orderbook, the request journal, the trade outbox, and
// order memory. It is the only write entry point; transports call into
// it and never touch the book directly.
package service
