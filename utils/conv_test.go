package utils

import (
	"bytes"
	"testing"
)

func TestStringConv(t *testing.T) {
	if s := BytesToString([]byte("Creature\\Wolf.m2\x00garbage")); s != "Creature\\Wolf.m2" {
		t.Errorf("BytesToString = %q", s)
	}
	// windows 1252 by default
	if b := StringToBytes("é", true); !bytes.Equal(b, []byte{0xe9, 0}) {
		t.Errorf("StringToBytes = %v", b)
	}
	if s := BytesToString([]byte{0xe9}); s != "é" {
		t.Errorf("decoded %q", s)
	}
}

func TestStringToBytesBuffer(t *testing.T) {
	for _, tc := range []struct {
		in        string
		size      int
		terminate bool
		want      []byte
	}{
		{"ab", 4, true, []byte{'a', 'b', 0, 0}},
		{"abcd", 4, true, []byte{'a', 'b', 'c', 0}},
		{"abcd", 4, false, []byte{'a', 'b', 'c', 'd'}},
		{"", 2, true, []byte{0, 0}},
	} {
		if got := StringToBytesBuffer(tc.in, tc.size, tc.terminate); !bytes.Equal(got, tc.want) {
			t.Errorf("%q in %d: %v, want %v", tc.in, tc.size, got, tc.want)
		}
	}
}

func TestAlign(t *testing.T) {
	for _, tc := range [][3]int{{0, 16, 0}, {1, 16, 16}, {16, 16, 16}, {17, 4, 20}} {
		if got := Align(tc[0], tc[1]); got != tc[2] {
			t.Errorf("Align(%d, %d) = %d", tc[0], tc[1], got)
		}
	}
}

func TestRandomNameGenerator(t *testing.T) {
	var a, b RandomNameGenerator
	first := a.RandomName()
	if b.RandomName() != first {
		t.Errorf("names differ between runs")
	}
	var c RandomNameGenerator
	c.Reserve(first)
	if c.RandomName() == first {
		t.Errorf("reserved name handed out")
	}
}
