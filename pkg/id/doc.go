// Package id mints the 128-bit event identifiers stamped on every bus
// envelope Grace publishes.
//
// An EventID orders byte-wise: the high eight bytes are the issue time
// in milliseconds and the low eight bytes disambiguate ids minted
// within the same millisecond. Downstream consumers can therefore sort
// a single publisher's events without trusting wall clocks alone.
//
// The Source never goes backwards. Each id is the larger of the
// current clock reading and the previously issued id plus one, so a
// regressing clock or a burst of issues inside one millisecond both
// yield strictly increasing ids without waiting.
package id
