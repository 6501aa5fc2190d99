package protocol

// Checksum returns the two's complement of the byte sum of data, so that
// Checksum(data) + sum(data) == 0 (mod 256).
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return -sum
}

// VerifyChecksum reports whether all bytes of frame, checksum included,
// sum to zero modulo 256. This is the check the firmware applies on receipt.
func VerifyChecksum(frame []byte) bool {
	if len(frame) == 0 {
		return false
	}
	var sum byte
	for _, b := range frame {
		sum += b
	}
	return sum == 0
}
