// Package orderbook implements a single-instrument limit order book
// matched under price-time priority. It maintains two red-black trees
// of price levels (bids and asks), an append-only trade log, and an
// id index for cancellation.
//
// The book is single-writer: all mutation is serialized through a
// per-book mutex. Hosts that provide their own exclusion can use the
// *Locked variants and skip the internal lock.
package orderbook
