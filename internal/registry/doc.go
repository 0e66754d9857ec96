// Package registry holds the step-handler and execution-profile registries
// for a single application instance. Step handlers implement the engine's
// step kinds (run, restore_cache, persist_to_workspace, ...); the engine
// itself treats every step as an opaque operation with a success or
// failure outcome.
package registry
