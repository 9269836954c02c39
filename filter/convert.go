package filter

import "unsafe"

// bytesToFloat32 reinterprets a row buffer as float32 samples without
// copying.
func bytesToFloat32(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}

// bytesToUint16 reinterprets a row buffer as uint16 samples without
// copying.
func bytesToUint16(b []byte) []uint16 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*uint16)(unsafe.Pointer(&b[0])), len(b)/2)
}
