package lens

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
)

const (
	compressionZstd   = ".zst"
	compressionSnappy = ".sz"
)

// splitCompressionExt returns the name without a trailing .zst or .sz extension, and that extension.
func splitCompressionExt(name string) (string, string) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == compressionZstd || ext == compressionSnappy {
		return name[:len(name)-len(ext)], ext
	}
	return name, ""
}

// decompressDocument reverses compressDocument, data is returned unchanged for an empty compression.
func decompressDocument(compression string, data []byte) ([]byte, error) {
	var err error
	switch compression {
	case "":
	case compressionZstd:
		if data, err = ZstdDecompress(nil, data); err != nil {
			return nil, fmt.Errorf("zstd decompress failed: %w", err)
		}
	case compressionSnappy:
		if data, err = SnappyDecompress(nil, data); err != nil {
			return nil, fmt.Errorf("snappy decompress failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: compression %s", ErrUnsupportedFormat, compression)
	}
	return data, nil
}

// compressDocument compresses an encoded event document with the compression named by its extension.
func compressDocument(compression string, data []byte) ([]byte, error) {
	switch compression {
	case "":
		return data, nil
	case compressionZstd:
		return ZstdCompress(nil, data), nil
	case compressionSnappy:
		return SnappyCompress(nil, data), nil
	}
	return nil, fmt.Errorf("%w: compression %s", ErrUnsupportedFormat, compression)
}

// zstdDecoder is shared by concurrent event file loads, DecodeAll is safe for concurrent use.
var zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.NumCPU()))
})

// ZstdCompress compresses an event document using zstd and returns the compressed data.
func ZstdCompress(dst, data []byte) []byte {
	encOpts := []zstd.EOption{
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
	}
	if len(data) > 1024*1024*100 { // update options for large event batches
		encOpts = append(encOpts, zstd.WithEncoderConcurrency(max(1, runtime.NumCPU()/2)))
	}
	encoder, err := zstd.NewWriter(nil, encOpts...)
	if err != nil {
		panic(err) // theoretically not possible
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, dst)
}

// ZstdDecompress decompresses a zstd-compressed event document.
func ZstdDecompress(dst, data []byte) ([]byte, error) {
	decoder, err := zstdDecoder()
	if err != nil {
		return nil, err
	}
	return decoder.DecodeAll(data, dst)
}

// SnappyCompress compresses an event document using snappy block encoding.
func SnappyCompress(dst, data []byte) []byte {
	return s2.EncodeSnappyBest(dst, data)
}

// SnappyDecompress decompresses a snappy-compressed event document, returning an error for invalid input.
func SnappyDecompress(dst, data []byte) ([]byte, error) {
	return snappy.Decode(dst, data)
}
