package snapshot

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type Source interface {
	Open() (io.ReadCloser, error)
}

const (
	EncodingUTF16LE = "utf-16le"
	EncodingUTF8    = "utf-8"
)

type FileSource struct {
	Path     string
	Encoding string
}

func NewFileSource(path, enc string) (*FileSource, error) {
	if _, err := decoderFor(enc); err != nil {
		return nil, err
	}
	return &FileSource{Path: path, Encoding: enc}, nil
}

func decoderFor(enc string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(enc), "_", "-")) {
	case "", EncodingUTF16LE, "utf16le", "utf-16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case EncodingUTF8, "utf8":
		return unicode.UTF8BOM, nil
	default:
		return nil, fmt.Errorf("unsupported snapshot encoding %q", enc)
	}
}

func (s *FileSource) Open() (io.ReadCloser, error) {
	enc, err := decoderFor(s.Encoding)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	return &decodedFile{Reader: transform.NewReader(f, enc.NewDecoder()), f: f}, nil
}

type decodedFile struct {
	io.Reader
	f *os.File
}

func (d *decodedFile) Close() error {
	return d.f.Close()
}

type StringSource string

func (s StringSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(s))), nil
}
