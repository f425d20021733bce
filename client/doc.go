// Package client is the Go SDK for the bandmate API. It mirrors the
// session lifecycle the web app drives: a credential store, a transport
// that injects the bearer header, and a session state machine whose
// snapshots feed route guards.
package client
