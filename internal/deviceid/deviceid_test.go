package deviceid

import "testing"

func TestFixedReturnsConstant(t *testing.T) {
	var r Reader = Fixed(0x0123456789ABCDEF)
	if got := r.ID(); got != 0x0123456789ABCDEF {
		t.Errorf("ID() = %#x, want %#x", got, uint64(0x0123456789ABCDEF))
	}
}
