// Package channel provides the framed transports snapshots are streamed over.
//
// Every transport accepts a single peer per Listen. Socket transports (unix,
// tcp) and the WebSocket transport are duplex capable; named pipes are
// send-only and refuse duplex at open time, which lets the server downgrade.
//
// Failures are typed: *CapabilityError (matches ErrNotSupported) for a
// missing capability, ErrUnavailable when a transport cannot run on this
// platform at all, and *Error for host and peer failures.
package channel
