// Package store keeps the latest displayed label per endpoint and fans
// updates out to subscribers.
//
// The main components are:
//
//   - [Store]: interface for storage and subscription
//   - [MemoryStore]: in-memory implementation with pub/sub
//   - [Snapshot]: the JSON shape served to dashboard clients
//
// Subscribers receive updates via channels with non-blocking sends; slow
// subscribers miss updates rather than block polling.
package store
