// Package artifact converts model weights and champion metadata to and from
// their persisted forms. Nothing in this package performs I/O.
//
// Weights are stored as a two-column CSV, one row per parameter in insertion
// order. Two header dialects exist: "feature,weight" for multi-feature models
// and "parameter,value" for the time-trend model. Metadata is a small JSON
// record: {"version": "...", "mse": 0.5}.
package artifact
