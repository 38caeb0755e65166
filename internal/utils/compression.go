package utils

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression formats for report artifacts
const (
	CompressNone = ""
	CompressGzip = "gz"
	CompressZstd = "zst"
	CompressXz   = "xz"
)

// ValidCompression reports whether format is supported
func ValidCompression(format string) bool {
	switch format {
	case CompressNone, CompressGzip, CompressZstd, CompressXz:
		return true
	}
	return false
}

// Compress compresses data with the given format
func Compress(data []byte, format string) ([]byte, error) {
	switch format {
	case CompressNone:
		return data, nil
	case CompressGzip:
		return GzipCompress(data)
	case CompressZstd:
		return ZstdCompress(data)
	case CompressXz:
		return XzCompress(data)
	default:
		return nil, fmt.Errorf("unsupported compression %q", format)
	}
}

// GzipCompress compresses data using gzip
func GzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ZstdCompress compresses data using zstd
func ZstdCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}

	if _, err := zw.Write(data); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// XzCompress compresses data using xz
func XzCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}

	if _, err := xw.Write(data); err != nil {
		return nil, err
	}

	if err := xw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
