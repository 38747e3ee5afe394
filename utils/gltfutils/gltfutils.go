package gltfutils

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// GLTFCacher remembers what was already written into Doc, so that shared
// parts (images, textures) are exported once.
type GLTFCacher struct {
	Doc   *gltf.Document
	cache map[string]interface{}
}

func NewCacher() *GLTFCacher {
	return &GLTFCacher{
		Doc:   NewDocument(),
		cache: make(map[string]interface{}),
	}
}

func (gc *GLTFCacher) AddCache(key string, v interface{}) {
	gc.cache[key] = v
}

func (gc *GLTFCacher) GetCachedOr(key string, create func() interface{}) interface{} {
	if v, ok := gc.cache[key]; ok {
		return v
	}
	v := create()
	gc.cache[key] = v
	return v
}

func NewDocument() *gltf.Document {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "wow_model_browser"
	return doc
}

func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

func Decode(r io.Reader) (*gltf.Document, error) {
	doc := &gltf.Document{}
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrapf(err, "Failed to read gltf")
	}
	return doc, nil
}

// GetExtras fills v from extras, whether they were set in memory or decoded
// from a file. Missing extras leave v untouched and report false.
func GetExtras(extras interface{}, v interface{}) (bool, error) {
	if extras == nil {
		return false, nil
	}
	data, err := json.Marshal(extras)
	if err != nil {
		return false, errors.Wrap(err, "marshal extras")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrap(err, "unmarshal extras")
	}
	return true, nil
}
