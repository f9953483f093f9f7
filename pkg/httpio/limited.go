// Package httpio contains small helpers for talking to remote HTTP endpoints with bounded resources.
package httpio

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

var ErrReadBody = errors.New("failed to read response body")

// LimitedText is a response body read up to a fixed byte budget.
type LimitedText struct {
	Text      string
	Truncated bool
}

// ReadUTF8Limited reads at most maxBytes raw bytes from reader and decodes them as UTF-8. The limit
// applies to bytes, not runes, so memory use is bounded regardless of the remote response size.
// A multi-byte sequence cut off at the limit is dropped, other invalid sequences are replaced with
// U+FFFD. Text never exceeds maxBytes. Truncated is set when at least one more byte was available.
func ReadUTF8Limited(reader io.Reader, maxBytes int) (LimitedText, error) {
	if reader == nil || maxBytes <= 0 {
		return LimitedText{}, nil
	}

	var buf bytes.Buffer

	buf.Grow(min(maxBytes, 4096))

	if _, errCopy := io.Copy(&buf, io.LimitReader(reader, int64(maxBytes))); errCopy != nil {
		return LimitedText{}, errors.Join(errCopy, ErrReadBody)
	}

	truncated := false

	if buf.Len() == maxBytes {
		// Probe for a single extra byte to detect whether more data exists.
		var probe [1]byte

		read, errProbe := io.ReadFull(reader, probe[:])
		if errProbe != nil && !errors.Is(errProbe, io.EOF) && !errors.Is(errProbe, io.ErrUnexpectedEOF) {
			return LimitedText{}, errors.Join(errProbe, ErrReadBody)
		}

		truncated = read > 0
	}

	return LimitedText{
		Text:      toValidUTF8(dropIncompleteTail(buf.Bytes()), maxBytes),
		Truncated: truncated,
	}, nil
}

// dropIncompleteTail removes a trailing multi-byte sequence that was cut short.
func dropIncompleteTail(raw []byte) []byte {
	for back := 1; back <= min(utf8.UTFMax, len(raw)); back++ {
		start := len(raw) - back
		if !utf8.RuneStart(raw[start]) {
			continue
		}

		if !utf8.FullRune(raw[start:]) {
			return raw[:start]
		}

		break
	}

	return raw
}

// toValidUTF8 replaces invalid sequences with U+FFFD and cuts the result back to a rune boundary
// when the replacements pushed it past maxBytes.
func toValidUTF8(raw []byte, maxBytes int) string {
	text := strings.ToValidUTF8(string(raw), "\uFFFD")
	if len(text) <= maxBytes {
		return text
	}

	end := maxBytes
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}

	return text[:end]
}
