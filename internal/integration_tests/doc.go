// Package integration_tests groups end-to-end tests that load HCL grids
// and manifests from disk and run them through the full application.
package integration_tests
