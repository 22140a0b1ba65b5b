// Package j1939 decodes SAE J1939 frames into named signal readings using
// a declarative PGN/SPN mapping.
package j1939

const (
	// PF values below this are PDU1 (destination specific), the PS byte is
	// a destination address and not part of the PGN.
	pdu2Threshold = 240
)

// SplitID extracts the parameter group number and the source address from
// a 29-bit extended CAN identifier.
//
// Every input yields some PGN; validity is decided one layer up by whether
// the PGN is present in the mapping.
func SplitID(id uint32) (pgn uint32, sourceAddr uint8) {
	pf := (id >> 16) & 0xFF
	ps := (id >> 8) & 0xFF
	dp := (id >> 17) & 0x1

	sourceAddr = uint8(id & 0xFF)

	if pf < pdu2Threshold {
		pgn = (dp << 16) | (pf << 8)
	} else {
		pgn = (dp << 16) | (pf << 8) | ps
	}

	return pgn, sourceAddr
}
