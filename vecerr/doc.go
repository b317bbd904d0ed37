// Package vecerr defines the coded error taxonomy shared by the benchmark:
// corrupt vector files, store write and query failures (with the recoverable
// syntax subtype), dataset mismatches and invalid input. Errors are built on
// github.com/samber/oops so codes and structured fields travel with the chain.
package vecerr
