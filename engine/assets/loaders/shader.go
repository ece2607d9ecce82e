package loaders

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/Fahien/vkr-go/engine/core"
)

// spirvMagic opens every valid SPIR-V module.
const spirvMagic = 0x07230203

// ShaderLoader reads compiled SPIR-V modules.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read shader %s: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}
	if len(data) < 4 || len(data)%4 != 0 {
		err := fmt.Errorf("shader %s is not SPIR-V: %d bytes", path, len(data))
		core.LogError(err.Error())
		return nil, err
	}
	if binary.LittleEndian.Uint32(data) != spirvMagic {
		err := fmt.Errorf("shader %s is not SPIR-V: bad magic", path)
		core.LogError(err.Error())
		return nil, err
	}
	return data, nil
}
