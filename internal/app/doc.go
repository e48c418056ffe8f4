// Package app wires the loader, the module registry and the DAG executor
// into a single runnable application instance.
package app
