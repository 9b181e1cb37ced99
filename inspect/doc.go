// Package inspect renders Function Values for diagnostics.
//
// Tree draws the captured-argument tree of a value; Snapshot captures the
// same structure as plain data that can be written to and read back from
// canonical CBOR. Entry points are recorded by name only, so a decoded
// snapshot describes a value but cannot be invoked.
package inspect
