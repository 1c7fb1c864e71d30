// Package registry maps bearer tokens to live client connections.
//
// The registry is the broker's routing table: a REST caller presents a
// token, and the dispatcher uses the registry to find the persistent
// connection registered under the same token. It holds no other state and
// persists nothing; a broker restart empties it and clients re-handshake.
//
// All operations are linearised by a single mutex. The map is bounded by
// the number of concurrently connected clients, so contention is
// negligible.
package registry
