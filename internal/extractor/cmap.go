package extractor

import (
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf16"
)

// maxRangeSpan bounds one bfrange entry; larger spans come from corrupt
// streams.
const maxRangeSpan = 0xFFFF

// toUnicode is a font's ToUnicode CMap: glyph codes of one or two bytes
// mapped to the text they render.
type toUnicode struct {
	codes  map[string]string // upper-case hex code -> text
	widths map[int]bool      // code widths in bytes seen in the map
}

func newToUnicode() *toUnicode {
	return &toUnicode{codes: map[string]string{}, widths: map[int]bool{}}
}

var (
	bfCharBlock  = regexp.MustCompile(`(?s)beginbfchar(.*?)endbfchar`)
	bfRangeBlock = regexp.MustCompile(`(?s)beginbfrange(.*?)endbfrange`)
	bfCharEntry  = regexp.MustCompile(`<([0-9A-Fa-f]+)>\s*<([0-9A-Fa-f]+)>`)
	bfRangeEntry = regexp.MustCompile(
		`<([0-9A-Fa-f]+)>\s*<([0-9A-Fa-f]+)>\s*(?:<([0-9A-Fa-f]+)>|\[([^\]]*)\])`,
	)
	hexToken = regexp.MustCompile(`<([0-9A-Fa-f]+)>`)
)

// parseToUnicode reads the bfchar and bfrange sections of a CMap stream.
func parseToUnicode(content string) *toUnicode {
	m := newToUnicode()

	for _, block := range bfCharBlock.FindAllStringSubmatch(content, -1) {
		for _, e := range bfCharEntry.FindAllStringSubmatch(block[1], -1) {
			m.set(e[1], utf16Hex(e[2]))
		}
	}

	for _, block := range bfRangeBlock.FindAllStringSubmatch(content, -1) {
		for _, e := range bfRangeEntry.FindAllStringSubmatch(block[1], -1) {
			lo, okLo := hexValue(e[1])
			hi, okHi := hexValue(e[2])
			if !okLo || !okHi || hi < lo || hi-lo > maxRangeSpan {
				continue
			}
			width := len(e[1])
			if e[4] != "" {
				for i, t := range hexToken.FindAllStringSubmatch(e[4], -1) {
					if lo+i > hi {
						break
					}
					m.set(codeHex(lo+i, width), utf16Hex(t[1]))
				}
				continue
			}
			units := utf16Units(e[3])
			if len(units) == 0 {
				continue
			}
			for code := lo; code <= hi; code++ {
				shifted := append([]uint16(nil), units...)
				shifted[len(shifted)-1] += uint16(code - lo)
				m.set(codeHex(code, width), string(utf16.Decode(shifted)))
			}
		}
	}
	return m
}

func (m *toUnicode) set(code, text string) {
	if text == "" || len(code)%2 != 0 {
		return
	}
	m.codes[strings.ToUpper(code)] = text
	m.widths[len(code)/2] = true
}

func (m *toUnicode) empty() bool {
	return m == nil || len(m.codes) == 0
}

// merge copies o into m; later fonts win on conflicting codes.
func (m *toUnicode) merge(o *toUnicode) {
	for k, v := range o.codes {
		m.codes[k] = v
	}
	for w := range o.widths {
		m.widths[w] = true
	}
}

// decode maps raw string bytes through the CMap, preferring two-byte codes
// when the map has any. In a single-byte map, unmapped printable bytes pass
// through as Latin-1.
func (m *toUnicode) decode(raw []byte) string {
	if m.empty() {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(raw); {
		if m.widths[2] && i+1 < len(raw) {
			if text, ok := m.codes[strings.ToUpper(hex.EncodeToString(raw[i:i+2]))]; ok {
				b.WriteString(text)
				i += 2
				continue
			}
		}
		if text, ok := m.codes[strings.ToUpper(hex.EncodeToString(raw[i:i+1]))]; ok {
			b.WriteString(text)
		} else if r := rune(raw[i]); !m.widths[2] && unicode.IsPrint(r) {
			b.WriteRune(r)
		}
		i++
	}
	return b.String()
}

func hexValue(h string) (int, bool) {
	if len(h) > 8 {
		return 0, false
	}
	v := 0
	for _, c := range strings.ToUpper(h) {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v += int(c - '0')
		case c >= 'A' && c <= 'F':
			v += int(c-'A') + 10
		default:
			return 0, false
		}
	}
	return v, true
}

// codeHex formats code as upper-case hex, zero-padded to width digits.
func codeHex(code, width int) string {
	h := strings.ToUpper(hex.EncodeToString([]byte{byte(code >> 24), byte(code >> 16), byte(code >> 8), byte(code)}))
	return h[len(h)-width:]
}

// utf16Units reads a hex string as UTF-16BE code units.
func utf16Units(h string) []uint16 {
	if len(h)%2 != 0 {
		h = "0" + h
	}
	data, err := hex.DecodeString(h)
	if err != nil {
		return nil
	}
	if len(data)%2 != 0 {
		data = append([]byte{0}, data...)
	}
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		units = append(units, uint16(data[i])<<8|uint16(data[i+1]))
	}
	return units
}

// utf16Hex decodes a hex string of UTF-16BE code units, surrogate pairs
// included.
func utf16Hex(h string) string {
	return string(utf16.Decode(utf16Units(h)))
}
