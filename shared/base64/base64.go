// Package base64 reads files sent inline as base64 data URIs.
package base64

import (
	"encoding/base64"
	"errors"
	"strings"
)

const marker = ";base64,"

var (
	ErrMalformed = errors.New("file must be a base64 data URI")
	ErrTooLarge  = errors.New("file exceeds the size limit")
)

// GetContentType returns the media type of a data URI, or "" when file is not one.
func GetContentType(file string) string {
	start := len("data:")
	end := strings.Index(file, marker)

	if end == -1 || end < start {
		return ""
	}

	return file[start:end]
}

// Decode returns the media type and payload of a data URI. Payloads over maxBytes are
// refused before they are decoded. A maxBytes of zero disables the limit.
func Decode(file string, maxBytes int) (contentType string, data []byte, err error) {
	if !strings.HasPrefix(file, "data:") {
		return "", nil, ErrMalformed
	}

	contentType = GetContentType(file)
	if contentType == "" {
		return "", nil, ErrMalformed
	}

	payload := file[strings.Index(file, marker)+len(marker):]

	// DecodedLen counts padding, which decodes to at most two bytes.
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload))-2 > maxBytes {
		return "", nil, ErrTooLarge
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return "", nil, ErrMalformed
	}

	if maxBytes > 0 && len(data) > maxBytes {
		return "", nil, ErrTooLarge
	}

	return contentType, data, nil
}
