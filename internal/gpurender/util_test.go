package gpurender

import "testing"

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 4, 65536: 65536, 65537: 131072, 100: 128}
	for in, want := range cases {
		if got := nextPowerOfTwo(in); got != want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestSliceUint32RoundTrip(t *testing.T) {
	words := sliceUint32([]byte{0x01, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0xff})
	if len(words) != 2 || words[0] != 1 || words[1] != 0xffffffff {
		t.Fatalf("sliceUint32 = %#x, want [1 0xffffffff]", words)
	}
}

func TestPutFloat32(t *testing.T) {
	buf := make([]byte, 4)
	putFloat32(buf, 0, 1.5)
	words := sliceUint32(buf)
	// 1.5 in IEEE-754 single precision is 0x3FC00000.
	if words[0] != 0x3FC00000 {
		t.Fatalf("putFloat32(1.5) bits = %#x, want 0x3fc00000", words[0])
	}
}
