package routeros

import (
	"fmt"
	"io"
)

// RouterOS API framing: every word is prefixed with a variable-width length,
// a sentence is a run of words terminated by a zero-length word.
//
// Length envelope by value range:
//
//	< 0x80        1 byte
//	< 0x4000      2 bytes, high bits 10
//	< 0x200000    3 bytes, high bits 110
//	< 0x10000000  4 bytes, high bits 1110
//	otherwise     0xF0 marker + 4 bytes
func encodeLength(n int) ([]byte, error) {
	switch {
	case n < 0:
		return nil, fmt.Errorf("routeros: negative word length %d", n)
	case n < 0x80:
		return []byte{byte(n)}, nil
	case n < 0x4000:
		v := n | 0x8000
		return []byte{byte(v >> 8), byte(v)}, nil
	case n < 0x200000:
		v := n | 0xC00000
		return []byte{byte(v >> 16), byte(v >> 8), byte(v)}, nil
	case n < 0x10000000:
		return []byte{byte(0xE0 | n>>24), byte(n >> 16), byte(n >> 8), byte(n)}, nil
	default:
		return []byte{0xF0, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}, nil
	}
}

func decodeLength(r io.Reader) (int, error) {
	b, err := readByte(r)
	if err != nil {
		return 0, err
	}
	switch {
	case b&0x80 == 0x00:
		return int(b), nil
	case b&0xC0 == 0x80:
		rest, err := readBytes(r, 1)
		if err != nil {
			return 0, err
		}
		return int(b&0x3F)<<8 | int(rest[0]), nil
	case b&0xE0 == 0xC0:
		rest, err := readBytes(r, 2)
		if err != nil {
			return 0, err
		}
		return int(b&0x1F)<<16 | int(rest[0])<<8 | int(rest[1]), nil
	case b&0xF0 == 0xE0:
		rest, err := readBytes(r, 3)
		if err != nil {
			return 0, err
		}
		return int(b&0x0F)<<24 | int(rest[0])<<16 | int(rest[1])<<8 | int(rest[2]), nil
	case b == 0xF0:
		rest, err := readBytes(r, 4)
		if err != nil {
			return 0, err
		}
		return int(rest[0])<<24 | int(rest[1])<<16 | int(rest[2])<<8 | int(rest[3]), nil
	default:
		return 0, fmt.Errorf("routeros: invalid length marker 0x%02X", b)
	}
}

func writeWord(w io.Writer, word string) error {
	prefix, err := encodeLength(len(word))
	if err != nil {
		return err
	}
	if _, err := w.Write(prefix); err != nil {
		return err
	}
	_, err = w.Write([]byte(word))
	return err
}

// writeSentence sends all words followed by the empty terminator word.
func writeSentence(w io.Writer, words []string) error {
	for _, word := range words {
		if err := writeWord(w, word); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte{0x00})
	return err
}

func readWord(r io.Reader) (string, error) {
	n, err := decodeLength(r)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf, err := readBytes(r, n)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// readSentence reads words until the zero-length terminator. An empty
// sentence returns a nil slice.
func readSentence(r io.Reader) ([]string, error) {
	var words []string
	for {
		word, err := readWord(r)
		if err != nil {
			return nil, err
		}
		if word == "" {
			return words, nil
		}
		words = append(words, word)
	}
}

func readByte(r io.Reader) (byte, error) {
	buf, err := readBytes(r, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func readBytes(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
