package common

import (
	"testing"
)

func TestAllOfAinB(t *testing.T) {
	cases := []struct {
		name string
		a    []string
		b    []string
		want bool
	}{
		{"empty in empty", nil, nil, true},
		{"empty in some", nil, []string{"x"}, true},
		{"subset", []string{"VK_KHR_swapchain"}, []string{"VK_KHR_swapchain", "VK_KHR_surface"}, true},
		{"missing", []string{"VK_KHR_swapchain"}, []string{"VK_KHR_surface"}, false},
		{"equal", []string{"a", "b"}, []string{"b", "a"}, true},
	}
	for _, c := range cases {
		if got := AllOfAinB(c.a, c.b); got != c.want {
			t.Errorf("%s: AllOfAinB(%v, %v) = %v, want %v", c.name, c.a, c.b, got, c.want)
		}
	}
}

func TestTerminatedStr(t *testing.T) {
	if got := TerminatedStr("VK_KHR_swapchain"); got != "VK_KHR_swapchain\x00" {
		t.Errorf("got %q", got)
	}
	// Already terminated strings stay untouched
	if got := TerminatedStr("abc\x00"); got != "abc\x00" {
		t.Errorf("got %q", got)
	}
}

func TestToByteArrLength(t *testing.T) {
	in := []float32{1, 2, 3, 4}
	got := ToByteArr(in)
	if len(got) != 16 {
		t.Errorf("len = %d, want 16", len(got))
	}
}

func TestAsUint32ArrRoundTrip(t *testing.T) {
	// 0x07230203 is the SPIR-V magic number in little endian byte order
	data := []byte{0x03, 0x02, 0x23, 0x07, 0xff, 0x00, 0x00, 0x00}
	words := AsUint32Arr(data)
	if len(words) != 2 {
		t.Fatalf("len = %d, want 2", len(words))
	}
	if words[0] != 0x07230203 {
		t.Errorf("words[0] = %#x, want 0x07230203", words[0])
	}
	if words[1] != 0xff {
		t.Errorf("words[1] = %#x, want 0xff", words[1])
	}
}

func TestRawBytesLittleEndian(t *testing.T) {
	got := RawBytes([]uint32{1})
	want := []byte{1, 0, 0, 0}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
