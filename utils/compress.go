package utils

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"io"
	"strings"
)

// compressedPrefix marks values written with compression on, so a store can
// read back entries written before the flag was toggled.
const compressedPrefix = "gz:"

// Compress gzips value and returns it base64 encoded with the compressed marker.
func Compress(value string) (string, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := io.WriteString(zw, value); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return compressedPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decompress reverses Compress. Values without the marker are returned as is.
func Decompress(value string) (string, error) {
	if !IsCompressed(value) {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, compressedPrefix))
	if err != nil {
		return "", err
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// IsCompressed reports whether value carries the compressed marker.
func IsCompressed(value string) bool {
	return strings.HasPrefix(value, compressedPrefix)
}
