// Package netgenfmt reads and writes the netgen native binary netlist
// format (spec §6): a file-level header followed by one block per
// cell, each block a flat run of length-prefixed objects terminated by
// a sentinel.
package netgenfmt

import "encoding/binary"

// Header layout: two 4-byte big-endian integers. magicSentinel lets a
// reader recognize the format (and, if the bytes come back byte-
// swapped, recognize a file written on a different-endian host);
// wordSize records the integer width the writer used, so a file from
// a host with a different native word size is rejected outright
// rather than silently misparsed (spec §6: "cross-endian / cross-
// word-size files are rejected").
const (
	magicSentinel uint32 = 0x4e47584e // "NGXN"
	wordSize      uint32 = 4          // every integer field in this format is 4 bytes
)

// endOfCell is the sentinel written in place of a name-length field to
// mark the end of a cell's object run.
const endOfCell uint32 = 0x0fff

var byteOrder = binary.BigEndian
