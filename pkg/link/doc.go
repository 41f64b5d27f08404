// Package link provides the radio link-layer protocol between a Host and a Device.
//
// The link protocol runs between a Host (facing a PC over serial) and a
// Device (facing a sensor board over serial) over a radio whose frames
// are at most 32 bytes. The Device always transmits first and the Host
// can only answer inside the acknowledgement of a Device transmission.
//
// A local byte stream is cut into pages of up to 16 frames. Each frame
// carries a one-byte header:
//
//	bit 7     stream flag
//	bits 6-3  countdown sequence (normal) or sample subtype (stream)
//	bits 2-0  checksum: low 3 bits of the negated payload sum
//
// The countdown reaches 0 on the last frame of a page, so the receiver
// needs no length field. A checksum failure is answered with a single
// control byte asking for the last frame again, a gap in the countdown
// with one asking for the whole page. Frames of exactly one byte are
// always control codes.
//
// Real-time sample packets recognized on the Device's serial input are
// sent as stream frames which bypass paging entirely.
package link
