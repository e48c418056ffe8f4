// Package oskar is the boundary to the external OSKAR toolkit.
//
// Toolkit mirrors the shape of the OSKAR Python binding (a sky model built
// from an array, an interferometer built from a settings tree, an imager
// that returns image planes) so drivers can be written against it and
// tested with a fake. CLI is the production implementation: it renders the
// settings tree as an INI file and runs the oskar_sim_interferometer and
// oskar_imager applications as child processes.
//
// Every failure raised on the far side of this boundary is an
// *ExecutionError.
package oskar
