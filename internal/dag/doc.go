// Package dag builds the dependency graph of a grid's steps and executes it
// with a bounded pool of workers. A step becomes ready once every step it
// depends on has finished; a failed step causes all of its dependents to be
// skipped.
package dag
