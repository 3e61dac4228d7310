// Package core defines the shared pure-data types of relsql.
//
// This package contains:
//   - Dialect configuration (DialectConfig, IdentifierConfig)
//   - The database adapter contract and its metadata types
//   - Target configuration (TargetConfig)
//
// pkg/core imports only the standard library. Every other package depends
// on core, not the reverse.
package core
