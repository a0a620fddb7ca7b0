// Package validate turns untrusted JSON payloads and query parameters into
// typed requests for the ledger.
//
// Payloads are checked against the CUE definitions in schema.cue before they
// are decoded. Every failure is reported as a *ledger.ValidationError whose
// violations name the offending field ("items[1].cost", "eventType", ...).
// A payload that passes validation is guaranteed to decode.
package validate
