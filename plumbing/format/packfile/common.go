// Package packfile implements reading and verifying version 2 packfiles:
// sequential scanning of entries, random-access materialization of objects
// through their delta chains, and a deterministic integrity report over
// the whole pack.
package packfile

var signature = []byte{'P', 'A', 'C', 'K'}

const (
	firstLengthBits = uint8(4)   // the first byte into object header has 4 bits to store the length
	lengthBits      = uint8(7)   // subsequent bytes has 7 bits to store the length
	maskFirstLength = 15         // 0000 1111
	maskContinue    = 0x80       // 1000 0000
	maskLength      = uint8(127) // 0111 1111
	maskType        = uint8(112) // 0111 0000
)
