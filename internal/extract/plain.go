package extract

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

var errNotText = errors.New("content is not UTF-8 text")

// extractPlain accepts UTF-8 text only. NUL bytes are taken as a sign of binary content.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) || bytes.IndexByte(content, 0) >= 0 {
		return "", errNotText
	}
	return string(content), nil
}
