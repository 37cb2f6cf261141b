package scanner

import (
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	"github.com/standardbeagle/fastpack/internal/types"
)

// readSource loads a module's text. Large files are memory-mapped and
// copied out in one pass instead of going through the buffered reader;
// node_modules trees routinely contain multi-megabyte prebundled files.
func readSource(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > types.DefaultMaxFileSize {
		return "", fmt.Errorf("%s exceeds the %d byte source limit", path, types.DefaultMaxFileSize)
	}

	if info.Size() >= types.MmapThreshold {
		file, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer file.Close()

		mapped, err := mmap.Map(file, mmap.RDONLY, 0)
		if err == nil {
			defer mapped.Unmap()
			return string(mapped), nil
		}
		// Mapping can fail on some filesystems; fall through to a plain
		// read.
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// sourceHash is a stable content hash. The parse cache is keyed by path
// and compares this hash to decide whether a cached parse is current.
func sourceHash(source string) uint64 {
	return xxhash.Sum64String(source)
}
