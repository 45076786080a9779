// Package server serves the pump status indicator page, a JSON status API
// and a Server-Sent Events stream of label updates.
//
// The server reads from a [store.Store] and never polls the pump itself.
package server
