package validation

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/username/salesetl/src/logger"
)

// allowedDetectedTypes lists what http.DetectContentType may report for a CSV.
var allowedDetectedTypes = map[string]bool{
	"text/plain":      true,
	"text/csv":        true,
	"text/xml":        true,
	"application/xml": true,
	"application/csv": true,
}

// TextChecker is an io.Writer that verifies a stream is UTF-8 text without NUL
// bytes. It is fed the same bytes as the fingerprint hash so the file is read once.
type TextChecker struct {
	name    string
	carry   []byte // incomplete rune from the previous write
	written int64
	err     error
}

// NewTextChecker returns a checker; name is only used in messages.
func NewTextChecker(name string) *TextChecker {
	return &TextChecker{name: name}
}

// Write never fails so it can sit behind io.MultiWriter; see Err.
func (c *TextChecker) Write(p []byte) (int, error) {
	if c.err != nil || len(p) == 0 {
		c.written += int64(len(p))
		return len(p), nil
	}

	if c.written == 0 {
		c.err = checkDetectedType(p)
	}
	c.written += int64(len(p))
	if c.err != nil {
		return len(p), nil
	}

	buf := append(c.carry, p...)
	cut := completeRunePrefix(buf)
	if isBinaryContent(buf[:cut]) {
		c.err = fmt.Errorf("file %s contains binary or non UTF-8 content", c.name)
		logger.L.Warn("File rejected: binary or non UTF-8 content", "file", c.name)
		return len(p), nil
	}
	c.carry = append(c.carry[:0], buf[cut:]...)
	return len(p), nil
}

// Err reports the first violation, including a truncated rune at end of input.
func (c *TextChecker) Err() error {
	if c.err != nil {
		return c.err
	}
	if c.written == 0 {
		return fmt.Errorf("file %s is empty", c.name)
	}
	if len(c.carry) > 0 {
		return fmt.Errorf("file %s ends inside a multi-byte character", c.name)
	}
	return nil
}

// completeRunePrefix returns the length of the longest prefix of buf that does
// not end inside a multi-byte UTF-8 sequence.
func completeRunePrefix(buf []byte) int {
	n := len(buf)
	for i := 1; i <= utf8.UTFMax && i <= n; i++ {
		b := buf[n-i]
		if b < utf8.RuneSelf {
			return n
		}
		if utf8.RuneStart(b) {
			if utf8.FullRune(buf[n-i:]) {
				return n
			}
			return n - i
		}
	}
	return n
}

// isBinaryContent checks if a buffer contains NUL bytes or invalid UTF-8.
func isBinaryContent(buf []byte) bool {
	if bytes.IndexByte(buf, 0) != -1 {
		return true
	}
	return !utf8.Valid(buf)
}

// checkDetectedType sniffs the first chunk of the file.
func checkDetectedType(head []byte) error {
	if len(head) > 512 {
		head = head[:512]
	}
	detected := http.DetectContentType(head)
	detected = strings.ToLower(strings.Split(detected, ";")[0])
	if !allowedDetectedTypes[detected] {
		logger.L.Warn("Disallowed detected file content type", "detectedContentType", detected)
		return fmt.Errorf("detected file content type '%s' is not allowed", detected)
	}
	return nil
}
