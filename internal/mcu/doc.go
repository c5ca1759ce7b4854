// Package mcu bridges a vendor driver process to typed telemetry events.
//
// Link resolves the driver for a glasses vendor, binds a private unix socket,
// starts the driver with the socket path in its environment and decodes every
// connection the driver opens. Frames are a tag byte followed by a fixed
// payload (big-endian float32 for roll, pitch and yaw, one byte for brightness
// changes) or, for text messages, a big-endian uint32 length and that many
// bytes. Decoded frames are delivered to a Sink; the sink owns any state.
package mcu
