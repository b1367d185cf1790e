package extractor

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// RawStrategy reads text operators straight from the PDF content streams,
// decoding custom font encodings through their ToUnicode CMaps. It covers
// files the PDF library rejects and needs no external binaries.
type RawStrategy struct{}

func (*RawStrategy) Name() string { return "pdf-raw" }

func (*RawStrategy) Extract(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return decodeRawPDF(ctx, data)
}

var (
	errNoStreams = errors.New("no content streams")
	errNoText    = errors.New("no text operators")
)

func decodeRawPDF(ctx context.Context, data []byte) (string, error) {
	streams := pdfStreams(data)
	if len(streams) == 0 {
		return "", errNoStreams
	}

	cmap := newToUnicode()
	var content []string
	for _, s := range streams {
		body := string(inflate(s))
		if strings.Contains(body, "beginbfchar") || strings.Contains(body, "beginbfrange") {
			cmap.merge(parseToUnicode(body))
			continue
		}
		content = append(content, body)
	}

	var lines []string
	for _, body := range content {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		lines = append(lines, streamLines(body, cmap)...)
	}
	if len(lines) == 0 {
		return "", errNoText
	}
	return strings.Join(lines, "\n"), nil
}

// pdfStreams returns the bytes between every "stream" and "endstream"
// keyword.
func pdfStreams(data []byte) [][]byte {
	var out [][]byte
	begin, end := []byte("stream"), []byte("endstream")
	for off := 0; off < len(data); {
		i := bytes.Index(data[off:], begin)
		if i < 0 {
			break
		}
		start := off + i + len(begin)
		if start < len(data) && data[start] == '\r' {
			start++
		}
		if start < len(data) && data[start] == '\n' {
			start++
		}
		j := bytes.Index(data[start:], end)
		if j < 0 {
			break
		}
		if j > 0 {
			out = append(out, data[start:start+j])
		}
		off = start + j + len(end)
	}
	return out
}

// inflate undoes FlateDecode, returning data unchanged when it is not
// zlib-compressed.
func inflate(data []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return data
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return data
	}
	return out
}

const (
	hexString = `<([0-9A-Fa-f\s]*)>`
	litString = `\(((?:\\.|[^\\)])*)\)`
)

var (
	textBlock = regexp.MustCompile(`(?s)\bBT\b(.*?)\bET\b`)
	// One alternative per operator, in stream order: show string (Tj, '),
	// show array (TJ), move to next line (Td, TD, T*).
	textOp = regexp.MustCompile(`(?s)(?:` + hexString + `|` + litString + `)\s*(Tj|'|")` +
		`|\[([^\]]*)\]\s*TJ` +
		`|(-?[\d.]+\s+-?[\d.]+\s+T[dD]|T\*)`)
	arrayItem = regexp.MustCompile(`(?s)` + hexString + `|` + litString + `|(-?[\d.]+)`)
)

// wordGap is the TJ displacement, in thousandths of an em, past which two
// strings are treated as separate words.
const wordGap = -200

// streamLines walks the BT/ET blocks of a content stream and returns its
// text one line per line break operator.
func streamLines(body string, cmap *toUnicode) []string {
	var lines []string
	var cur strings.Builder
	flush := func() {
		if line := strings.TrimSpace(cur.String()); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	for _, block := range textBlock.FindAllStringSubmatch(body, -1) {
		for _, m := range textOp.FindAllStringSubmatch(block[1], -1) {
			switch {
			case m[5] != "":
				flush()
			case m[4] != "":
				cur.WriteString(decodeArray(m[4], cmap))
			default:
				if m[3] != "Tj" {
					flush()
				}
				if strings.HasPrefix(m[0], "<") {
					cur.WriteString(decodeHex(m[1], cmap))
				} else {
					cur.WriteString(decodeLiteral(m[2], cmap))
				}
			}
		}
		flush()
	}
	return lines
}

func decodeArray(items string, cmap *toUnicode) string {
	var b strings.Builder
	for _, m := range arrayItem.FindAllStringSubmatch(items, -1) {
		switch {
		case m[3] != "":
			if n, err := strconv.ParseFloat(m[3], 64); err == nil && n < wordGap {
				b.WriteByte(' ')
			}
		case strings.HasPrefix(m[0], "<"):
			b.WriteString(decodeHex(m[1], cmap))
		default:
			b.WriteString(decodeLiteral(m[2], cmap))
		}
	}
	return b.String()
}

func decodeHex(h string, cmap *toUnicode) string {
	h = strings.Join(strings.Fields(h), "")
	if len(h)%2 != 0 {
		h += "0"
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return ""
	}
	if text := cmap.decode(raw); text != "" {
		return text
	}
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		return printable(utf16Hex(h[4:]))
	}
	return latin1(raw)
}

func decodeLiteral(s string, cmap *toUnicode) string {
	raw := unescapeLiteral(s)
	if text := cmap.decode(raw); text != "" {
		return text
	}
	return latin1(raw)
}

// unescapeLiteral resolves the backslash escapes of a PDF literal string.
func unescapeLiteral(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			out = append(out, s[i])
			continue
		}
		i++
		switch c := s[i]; c {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case '\r', '\n':
			// line continuation
		default:
			if c < '0' || c > '7' {
				out = append(out, c)
				continue
			}
			v := int(c - '0')
			for k := 0; k < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; k++ {
				i++
				v = v*8 + int(s[i]-'0')
			}
			out = append(out, byte(v))
		}
	}
	return out
}

// latin1 reads single-byte text, dropping control characters.
func latin1(raw []byte) string {
	runes := make([]rune, 0, len(raw))
	for _, c := range raw {
		runes = append(runes, rune(c))
	}
	return printable(string(runes))
}

func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
}
