package local

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mineradorx/relay/internal/core/domain"
)

/*
	GGUF header layout (little endian), see
	https://github.com/ggml-org/ggml/blob/master/docs/gguf.md

	magic        [4]byte "GGUF"
	version      uint32
	tensor_count uint32 (v1) / uint64 (v2+)
	kv_count     uint32 (v1) / uint64 (v2+)
*/

var ggufMagic = [4]byte{'G', 'G', 'U', 'F'}

const maxGGUFVersion = 3

var ErrNotGGUF = errors.New("not a GGUF model file")

// ReadGGUFHeader validates the file at path and returns its header metadata
func ReadGGUFHeader(path string) (domain.LocalModelInfo, error) {
	info := domain.LocalModelInfo{Path: path}

	f, err := os.Open(path)
	if err != nil {
		return info, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return info, err
	}
	if stat.IsDir() {
		return info, fmt.Errorf("%s is a directory: %w", path, ErrNotGGUF)
	}
	info.SizeBytes = stat.Size()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return info, fmt.Errorf("reading magic: %w", ErrNotGGUF)
	}
	if magic != ggufMagic {
		return info, fmt.Errorf("bad magic %q: %w", magic[:], ErrNotGGUF)
	}

	if err := binary.Read(f, binary.LittleEndian, &info.Version); err != nil {
		return info, fmt.Errorf("reading version: %w", err)
	}
	if info.Version == 0 || info.Version > maxGGUFVersion {
		return info, fmt.Errorf("unsupported GGUF version %d", info.Version)
	}

	if info.Version == 1 {
		var tensors, kvs uint32
		if err := binary.Read(f, binary.LittleEndian, &tensors); err != nil {
			return info, fmt.Errorf("reading tensor count: %w", err)
		}
		if err := binary.Read(f, binary.LittleEndian, &kvs); err != nil {
			return info, fmt.Errorf("reading metadata count: %w", err)
		}
		info.TensorCount, info.MetadataCount = uint64(tensors), uint64(kvs)
		return info, nil
	}

	if err := binary.Read(f, binary.LittleEndian, &info.TensorCount); err != nil {
		return info, fmt.Errorf("reading tensor count: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &info.MetadataCount); err != nil {
		return info, fmt.Errorf("reading metadata count: %w", err)
	}
	return info, nil
}
