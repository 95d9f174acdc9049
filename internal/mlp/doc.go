// Package mlp owns connection orchestration for the MLP server boundary.
//
// Ownership boundary:
// - TCP accept loop and one goroutine per connection
// - per-connection framer drive and strict request/ack ordering
// - persistence collaborator contract and per-message error recovery
// - optional serial listener and admin surface lifecycle
package mlp
