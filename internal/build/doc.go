// Package build drives one build pass over the assets tree.
//
// The Orchestrator moves through a fixed sequence of states (init, scanning,
// classifying, processing, reconciling, writing, committing_cache) and ends
// in done or failed. Processing runs under a pluggable Strategy: Sequential
// or Sharded across goroutines. Per-asset failures never fail the build;
// fatal errors stop it before the cache commit, so the persisted cache always
// reflects a fully completed build.
package build
