// Package paging encodes opaque keyset cursors for list endpoints.
package paging

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// EncodeCursor encodes (createdAt, id) of the last row on a page.
func EncodeCursor(createdAt time.Time, id uint) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + strconv.FormatUint(uint64(id), 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(cursor string) (time.Time, uint, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, 0, ErrInvalidCursor
	}
	ts, idStr, ok := strings.Cut(string(b), "|")
	if !ok {
		return time.Time{}, 0, ErrInvalidCursor
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, 0, ErrInvalidCursor
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return time.Time{}, 0, ErrInvalidCursor
	}
	return t, uint(id), nil
}

// EncodeKeyCursor encodes the unique sort key (username, vsn, name) of the last row on a page.
func EncodeKeyCursor(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte("k|" + key))
}

func DecodeKeyCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", ErrInvalidCursor
	}
	key, ok := strings.CutPrefix(string(b), "k|")
	if !ok || key == "" {
		return "", ErrInvalidCursor
	}
	return key, nil
}
