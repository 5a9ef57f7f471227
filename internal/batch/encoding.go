package batch

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// codec converts documents between their on-disk encoding and UTF-8.
// A nil enc means the documents are UTF-8 already.
type codec struct {
	name string
	enc  encoding.Encoding
}

func newCodec(name string) (codec, error) {
	if name == "" {
		return codec{name: "utf-8"}, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return codec{}, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}

	canonical, err := htmlindex.Name(enc)
	if err != nil {
		return codec{}, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}

	if canonical == "utf-8" {
		return codec{name: canonical}, nil
	}

	return codec{name: canonical, enc: enc}, nil
}

func (c codec) decode(data []byte) (string, error) {
	if c.enc == nil {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: invalid %s", ErrDecode, c.name)
		}

		return string(data), nil
	}

	out, err := c.enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return string(out), nil
}

func (c codec) encode(text string) ([]byte, error) {
	if c.enc == nil {
		return []byte(text), nil
	}

	out, err := c.enc.NewEncoder().String(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return []byte(out), nil
}
