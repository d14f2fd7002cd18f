// Package config provides configuration loading, merging, and validation
// facilities for the farm-sync client.
//
// Configuration is assembled from multiple sources in the following priority
// order (earlier sources win, later sources fill remaining zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON config file
//  4. Built-in defaults
//
// The main entry points are [GetStructuredConfig] for the full merged view
// and [GetClientConfig] for the engine-facing configuration.
package config
