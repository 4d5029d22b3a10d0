package buffer

// ReadSize is the size of a single socket read. Larger payloads simply arrive
// as several consecutive messages.
const ReadSize = 64 * 1024

// Read is a fixed size buffer that a connection reader fills from its socket.
type Read [ReadSize]byte

// Recycle zeroes the Read, making it fresh for another use.
func (b *Read) Recycle() {
	RecycleSlice(b[:])
}
