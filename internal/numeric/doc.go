// Package numeric provides the shared vocabulary for the NumLab solver
// packages: objective functions with optional analytic derivatives,
// finite-difference fallbacks, iteration traces, and the sentinel error
// taxonomy every solver reports its failures through.
package numeric
