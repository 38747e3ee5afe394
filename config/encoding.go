package config

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// String tables of models and world objects hold single byte paths and names.
// Western clients write Windows-1252.
var stringCharmap = charmap.Windows1252

func charmaps() []*charmap.Charmap {
	var list []*charmap.Charmap
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			list = append(list, cm)
		}
	}
	return list
}

// encodingKey folds case and separators, and reads cpNNNN as a Windows code page.
func encodingKey(name string) string {
	key := strings.ToLower(name)
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	if strings.HasPrefix(key, "cp") {
		key = "windows" + key[2:]
	}
	return key
}

// SetEncoding selects the charmap for string tables by any spelling of a name
// ListEncodings returns, e.g. "Windows 1251", "windows-1251" or "cp1251".
func SetEncoding(name string) error {
	key := encodingKey(name)
	for _, cm := range charmaps() {
		if encodingKey(cm.String()) == key {
			stringCharmap = cm
			return nil
		}
	}
	return errors.Errorf("unknown string encoding %q, one of ListEncodings() expected", name)
}

func ListEncodings() []string {
	var list []string
	for _, cm := range charmaps() {
		list = append(list, cm.String())
	}
	return list
}

func GetEncoding() *charmap.Charmap {
	return stringCharmap
}
