package memory

import "testing"

func TestGetBufferReturnsResetBuffer(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("leftover")
	PutBuffer(buf)

	reused := GetBuffer()
	if reused.Len() != 0 {
		t.Fatalf("expected reset buffer, got length %d", reused.Len())
	}
	PutBuffer(reused)
}

func TestPutBufferDropsOversizedBuffers(t *testing.T) {
	big := GetBuffer()
	big.Grow(maxPooledBufferCap + 1)
	big.Write(make([]byte, maxPooledBufferCap+1))
	if big.Cap() <= maxPooledBufferCap {
		t.Fatalf("test buffer not actually oversized: cap=%d", big.Cap())
	}
	PutBuffer(big) // should not panic; buffer is simply dropped
}
