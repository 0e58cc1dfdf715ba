package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"
)

// Encode packs normalized float samples into little-endian 16-bit PCM.
//
// Samples are scaled by 32768 and truncated to int16. Values outside
// [-1, 1) wrap per fixed-width integer semantics; callers that need
// clamping must do it themselves.
func Encode(samples []float32) []byte {
	encoded := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(encoded[i*2:], uint16(int16(sample*32768)))
	}
	return encoded
}

// Decode reinterprets little-endian 16-bit PCM as normalized float
// samples. A trailing odd byte is rejected rather than silently
// dropped.
func Decode(pcm []byte) ([]float32, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("malformed pcm payload: odd length %d", len(pcm))
	}

	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
	}
	return samples, nil
}

// EncodeBase64 frames PCM bytes for JSON transport.
func EncodeBase64(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// DecodeBase64 unframes a transport payload back into PCM bytes.
func DecodeBase64(payload string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed audio payload: %w", err)
	}
	return pcm, nil
}

// Duration reports how long the given PCM byte slice plays for at the
// given encoding.
func Duration(pcm []byte, encodingInfo EncodingInfo) time.Duration {
	bytesPerSecond := encodingInfo.SampleRate * encodingInfo.Format.ByteSize()
	if bytesPerSecond <= 0 {
		return 0
	}

	return time.Duration(float64(len(pcm)) / float64(bytesPerSecond) * float64(time.Second))
}
