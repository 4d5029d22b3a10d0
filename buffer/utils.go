// Package buffer provides the fixed size byte arrays used for socket reads.
package buffer

// RecycleSlice zeroes byte slice, making it fresh for another use.
func RecycleSlice(b []byte) {
	clear(b)
}
