// Package registry provides the central "glue" for the module system.
//
// The Registry stores mappings between the string identifiers used in
// manifests (e.g., "OnRunOskarImager") and the compiled Go functions and
// types that implement them, together with the parsed manifest definitions
// and each runner's read-only metadata.
//
// During application startup the registry is populated and then validated
// so that the Go code and the manifests are in sync before any step runs.
package registry
