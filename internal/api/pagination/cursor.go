package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// TimeCursor encodes a timestamp + id for stable (created_at, id) ordering.
type TimeCursor struct {
	Timestamp time.Time
	ID        string
}

// EncodeTimeCursor encodes the cursor as base64(ts_unix_nano:id).
func EncodeTimeCursor(timestamp time.Time, id string) string {
	value := fmt.Sprintf("%d:%s", timestamp.UTC().UnixNano(), strings.TrimSpace(id))
	return base64.RawURLEncoding.EncodeToString([]byte(value))
}

// DecodeTimeCursor decodes base64(ts_unix_nano:id) into a TimeCursor.
func DecodeTimeCursor(cursor string) (TimeCursor, error) {
	prefix, id, err := split(cursor, "")
	if err != nil {
		return TimeCursor{}, err
	}
	unixNano, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return TimeCursor{}, ErrInvalidCursor
	}
	return TimeCursor{Timestamp: time.Unix(0, unixNano).UTC(), ID: id}, nil
}

// OrderCursor encodes a sort position + id for manually ordered content.
type OrderCursor struct {
	Position int
	ID       string
}

// EncodeOrderCursor encodes the cursor as base64(pos_<n>:id).
func EncodeOrderCursor(position int, id string) string {
	value := fmt.Sprintf("pos_%d:%s", position, strings.TrimSpace(id))
	return base64.RawURLEncoding.EncodeToString([]byte(value))
}

// DecodeOrderCursor decodes base64(pos_<n>:id) into an OrderCursor.
func DecodeOrderCursor(cursor string) (OrderCursor, error) {
	prefix, id, err := split(cursor, "pos_")
	if err != nil {
		return OrderCursor{}, err
	}
	position, err := strconv.Atoi(prefix)
	if err != nil {
		return OrderCursor{}, ErrInvalidCursor
	}
	return OrderCursor{Position: position, ID: id}, nil
}

func split(cursor, prefix string) (string, string, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return "", "", ErrInvalidCursor
	}
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", "", ErrInvalidCursor
	}
	value := string(decoded)
	if prefix != "" {
		if !strings.HasPrefix(value, prefix) {
			return "", "", ErrInvalidCursor
		}
		value = strings.TrimPrefix(value, prefix)
	}
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return "", "", ErrInvalidCursor
	}
	return parts[0], strings.TrimSpace(parts[1]), nil
}
