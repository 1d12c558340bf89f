// Copyright 2026 The Drydock Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides drydock's standard CBOR encoding configuration.
//
// Drydock uses two serialization formats with a clear boundary:
//
//   - YAML and JSONC for human-edited inputs: the configuration file
//     and tool profile manifests.
//   - CBOR for machine-to-machine hand-off: the build job payload
//     written to the detached runner's stdin.
//
// The job payload crosses a process boundary, so it needs an explicit,
// unambiguous encoding rather than a delimiter-joined string. This
// package provides the shared CBOR modes so both sides of the pipe
// encode identically. The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (the runner's stdin pipe):
//
//	encoder := codec.NewEncoder(pipe)
//	decoder := codec.NewDecoder(os.Stdin)
//
// Types serialized by this package use `cbor` struct tags; they never
// participate in JSON or YAML serialization.
package codec
