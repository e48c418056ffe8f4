// Package cli implements the oskargrid command line: flag parsing, the
// optional TOML config file and the runners and version subcommands.
package cli
