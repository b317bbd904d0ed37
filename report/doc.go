// Package report describes the outcome of a benchmark run and renders it as
// a json or yaml file or a styled terminal summary.
package report
