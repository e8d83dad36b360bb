package loaders

import (
	"io/fs"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vulkantesting/engine/core"
	"github.com/spaghettifunk/vulkantesting/engine/resources"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// ShaderLoader loads a compiled SPIR-V stage.
type ShaderLoader struct {
	binary BinaryLoader
}

func (sl *ShaderLoader) Load(path string, params interface{}) (*resources.Resource, error) {
	res, err := sl.binary.Load(path, params)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(core.ErrShaderFileNotFound, "%s", path)
		}
		return nil, errors.Mark(err, core.ErrInvalidShader)
	}

	code := res.Data.([]uint32)
	if len(code) == 0 {
		return nil, errors.Wrapf(core.ErrInvalidShader, "%s is empty", path)
	}
	if code[0] != SPIRVMagic {
		return nil, errors.Wrapf(core.ErrInvalidShader, "%s: bad magic %#08x", path, code[0])
	}
	res.Type = resources.ResourceTypeShader
	return res, nil
}

func (sl *ShaderLoader) Unload(res *resources.Resource) error {
	return sl.binary.Unload(res)
}
