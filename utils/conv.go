package utils

import (
	"bytes"

	"github.com/mogaika/wow_model_browser/config"

	"golang.org/x/text/transform"
)

func BytesToString(bs []byte) string {
	n := bytes.IndexByte(bs, 0)
	if n < 0 {
		n = len(bs)
	}

	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs[0:n])
	if err != nil {
		panic(err)
	}

	return string(s)
}

// StringToBytesBuffer encodes s into a fixed size zero padded field.
// Strings longer than the field are truncated, keeping the terminator when requested.
func StringToBytesBuffer(s string, bufSize int, nilTerminate bool) []byte {
	bs := StringToBytes(s, false)
	limit := bufSize
	if nilTerminate {
		limit--
	}
	if len(bs) > limit {
		bs = bs[:limit]
	}
	r := make([]byte, bufSize)
	copy(r, bs)
	return r
}

func StringToBytes(s string, nilTerminate bool) []byte {
	bs, _, err := transform.Bytes(config.GetEncoding().NewEncoder(), []byte(s))
	if err != nil {
		panic(err)
	}

	if nilTerminate {
		bs = append(bs, 0)
	}
	return bs
}

func Align(v, alignment int) int {
	if r := v % alignment; r != 0 {
		return v + alignment - r
	}
	return v
}
