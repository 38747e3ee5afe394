package m2

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/chunk"
)

var fourccAFM2 = chunk.MakeFourCC("AFM2")

func basePath(modelPath string) string {
	if i := strings.LastIndexByte(modelPath, '.'); i > strings.LastIndexAny(modelPath, `/\`) {
		return modelPath[:i]
	}
	return modelPath
}

// SkinPath is the path of the skin profile index of a model.
func SkinPath(modelPath string, index int) string {
	return fmt.Sprintf("%s%02d.skin", basePath(modelPath), index)
}

// AnimPath is the path of the sidecar holding the keys of an external sequence.
func AnimPath(modelPath string, animationID, variation uint16) string {
	return fmt.Sprintf("%s_%04d_%02d.anim", basePath(modelPath), animationID, variation)
}

// UnwrapAnim returns the key blob of an anim sidecar, stripping the AFM2 chunk of
// chunked clients. Offsets inside the blob are relative to its start.
func UnwrapAnim(data []byte) ([]byte, error) {
	if len(data) < chunk.HEADER_SIZE || chunk.MakeFourCC(string(data[:4])) != fourccAFM2 {
		return data, nil
	}
	idx, err := chunk.BuildIndex(data, false)
	if err != nil {
		return nil, errors.Wrap(err, "anim chunks")
	}
	c, ok := idx.First(fourccAFM2)
	if !ok {
		return nil, errors.New("anim chunks: no AFM2")
	}
	return c.Payload(data), nil
}

func WrapAnim(payload []byte, chunked bool) []byte {
	if !chunked {
		return payload
	}
	w := chunk.NewWriter(false)
	w.WriteChunk(fourccAFM2, payload)
	return w.Bytes()
}
