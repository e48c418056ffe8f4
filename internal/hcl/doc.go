// Package hcl provides the concrete HCL implementation for the configuration
// loading and data conversion interfaces defined in the `config` package.
// It parses runner manifests and grid files, translates them into the
// format-agnostic model, and binds cty values to Go input structs.
package hcl
