package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeTimeCursor(t *testing.T) {
	timestamp := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)

	cursor := EncodeTimeCursor(timestamp, "  01HYX3KQW7ERTV9XNBM2P8QJZF ")

	decoded, err := DecodeTimeCursor(cursor)

	require.NoError(t, err)
	require.Equal(t, timestamp, decoded.Timestamp)
	require.Equal(t, "01HYX3KQW7ERTV9XNBM2P8QJZF", decoded.ID)
}

func TestDecodeTimeCursorErrors(t *testing.T) {
	_, err := DecodeTimeCursor("")

	require.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeTimeCursor("%%%")

	require.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeTimeCursor("bm90LWFfdmFsaWRfZm9ybWF0")

	require.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeTimeCursor(EncodeOrderCursor(3, "01HYX3KQW7ERTV9XNBM2P8QJZF"))

	require.ErrorIs(t, err, ErrInvalidCursor)
}

func TestEncodeDecodeOrderCursor(t *testing.T) {
	cursor := EncodeOrderCursor(7, "01HYX3KQW7ERTV9XNBM2P8QJZF")

	decoded, err := DecodeOrderCursor(cursor)

	require.NoError(t, err)
	require.Equal(t, 7, decoded.Position)
	require.Equal(t, "01HYX3KQW7ERTV9XNBM2P8QJZF", decoded.ID)
}

func TestDecodeOrderCursorErrors(t *testing.T) {
	_, err := DecodeOrderCursor("")

	require.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeOrderCursor(EncodeTimeCursor(time.Now(), "01HYX3KQW7ERTV9XNBM2P8QJZF"))

	require.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeOrderCursor("cG9zX3g6YWJj")

	require.ErrorIs(t, err, ErrInvalidCursor)
}
