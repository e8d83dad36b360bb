package loaders

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vulkantesting/engine/resources"
)

// BinaryLoader reads a file of little endian 32-bit words.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, params interface{}) (*resources.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	if len(buf)%4 != 0 {
		return nil, errors.Newf("%s: size %d is not a multiple of 4", path, len(buf))
	}

	name, _ := params.(string)
	return &resources.Resource{
		Type:     resources.ResourceTypeBinary,
		Name:     name,
		FullPath: path,
		DataSize: uint64(len(buf)),
		Data:     bytesToBytecode(buf),
	}, nil
}

func (bl *BinaryLoader) Unload(res *resources.Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
