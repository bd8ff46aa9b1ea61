// ABOUTME: Binary audio chunk framing for the monitor WebSocket
// ABOUTME: One chunk carries one slot's audio with its stream timestamp
package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	// AudioChunkMessageType is the binary message type ID for audio chunks
	AudioChunkMessageType = 4

	// BinaryMessageHeaderSize is type byte + slot byte + 8 byte timestamp
	BinaryMessageHeaderSize = 1 + 1 + 8
)

// AudioChunk represents a timestamped block of one slot's audio
type AudioChunk struct {
	Slot      int
	Timestamp int64  // Microseconds since stream start
	Data      []byte // PCM16 LE or one Opus packet
}

// CreateAudioChunk creates a binary audio chunk message
func CreateAudioChunk(slot int, timestamp int64, audioData []byte) []byte {
	// Binary format: [message_type:1][slot:1][timestamp:8][audio_data:N]
	chunk := make([]byte, BinaryMessageHeaderSize+len(audioData))
	chunk[0] = AudioChunkMessageType
	chunk[1] = byte(slot)
	binary.BigEndian.PutUint64(chunk[2:BinaryMessageHeaderSize], uint64(timestamp))
	copy(chunk[BinaryMessageHeaderSize:], audioData)
	return chunk
}

// ParseAudioChunk splits a binary message. The returned Data aliases data.
func ParseAudioChunk(data []byte) (AudioChunk, error) {
	if len(data) < BinaryMessageHeaderSize {
		return AudioChunk{}, fmt.Errorf("invalid binary message: %d bytes, want at least %d", len(data), BinaryMessageHeaderSize)
	}
	if data[0] != AudioChunkMessageType {
		return AudioChunk{}, fmt.Errorf("unknown binary message type: %d", data[0])
	}
	return AudioChunk{
		Slot:      int(data[1]),
		Timestamp: int64(binary.BigEndian.Uint64(data[2:BinaryMessageHeaderSize])),
		Data:      data[BinaryMessageHeaderSize:],
	}, nil
}
