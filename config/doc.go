// Package config loads benchmark settings from defaults, an optional YAML
// file, VECBENCH_* environment variables and bound command-line flags.
package config
