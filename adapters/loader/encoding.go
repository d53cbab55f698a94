package loader

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"lazyprep/domain/core"
)

const sniffSize = 4096

// Encoding names reported in file info
const (
	EncodingASCII       = "ascii"
	EncodingUTF8        = "utf-8"
	EncodingUTF8BOM     = "utf-8-sig"
	EncodingUTF16       = "utf-16"
	EncodingWindows1252 = "windows-1252"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectEncoding guesses the text encoding from the leading bytes of a file
func DetectEncoding(head []byte) string {
	switch {
	case bytes.HasPrefix(head, bomUTF8):
		return EncodingUTF8BOM
	case bytes.HasPrefix(head, bomUTF16LE), bytes.HasPrefix(head, bomUTF16BE):
		return EncodingUTF16
	}
	ascii := true
	for _, b := range head {
		if b >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return EncodingASCII
	}
	if validUTF8Prefix(head) {
		return EncodingUTF8
	}
	return EncodingWindows1252
}

// validUTF8Prefix tolerates a multi-byte rune cut at the end of the sniff window
func validUTF8Prefix(b []byte) bool {
	if utf8.Valid(b) {
		return true
	}
	for cut := 1; cut < utf8.UTFMax && cut < len(b); cut++ {
		if utf8.Valid(b[:len(b)-cut]) {
			return !utf8.FullRune(b[len(b)-cut:])
		}
	}
	return false
}

func decoderFor(name string) (*encoding.Decoder, error) {
	switch name {
	case EncodingASCII, EncodingUTF8, EncodingUTF8BOM:
		return unicode.UTF8BOM.NewDecoder(), nil
	case EncodingUTF16:
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder(), nil
	case EncodingWindows1252:
		return charmap.Windows1252.NewDecoder(), nil
	}
	return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedEncoder, name)
}

func decodingReader(r io.Reader, name string) (io.Reader, error) {
	dec, err := decoderFor(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, dec), nil
}
