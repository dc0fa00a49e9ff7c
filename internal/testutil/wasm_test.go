package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelloGuest_Bytes(t *testing.T) {
	want := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x0b, 0x02, 0x60, 0x01, 0x7e, 0x01, 0x7e, 0x60, 0x01, 0x7f, 0x01, 0x7f,
		0x02, 0x11, 0x01, 0x07, 'p', 'r', 'o', 'j', 'e', 'c', 't', 0x05, 'h', 'e', 'l', 'l', 'o', 0x00, 0x00,
		0x03, 0x03, 0x02, 0x01, 0x00,
		0x05, 0x03, 0x01, 0x00, 0x01,
		0x06, 0x07, 0x01, 0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b,
		0x07, 0x22, 0x03,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x08, 'a', 'l', 'l', 'o', 'c', 'a', 't', 'e', 0x00, 0x01,
		0x0a, 'c', 'a', 'l', 'l', '_', 'h', 'e', 'l', 'l', 'o', 0x00, 0x02,
		0x0a, 0x14, 0x02,
		0x0b, 0x00, 0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00, 0x0b,
		0x06, 0x00, 0x20, 0x00, 0x10, 0x00, 0x0b,
	}
	assert.Equal(t, want, HelloGuest())
}

func TestLEB128(t *testing.T) {
	assert.Equal(t, []byte{0x00}, uleb128(nil, 0))
	assert.Equal(t, []byte{0xe5, 0x8e, 0x26}, uleb128(nil, 624485))
	assert.Equal(t, []byte{0x80, 0x08}, sleb128(nil, 1024))
	assert.Equal(t, []byte{0x7f}, sleb128(nil, -1))
	assert.Equal(t, []byte{0x3f}, sleb128(nil, 63))
	assert.Equal(t, []byte{0xc0, 0x00}, sleb128(nil, 64))
}
