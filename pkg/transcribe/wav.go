package transcribe

import (
	"encoding/binary"

	"github.com/shawnjuqi/sentient/pkg/audio/pcm"
)

// EncodeWAV renders canonical samples as a 16-bit PCM mono WAV file at the
// canonical rate, the interchange format the HTTP transcription backend
// expects.
func EncodeWAV(samples []float32) []byte {
	dataLen := len(samples) * 2
	buf := make([]byte, 44+dataLen)

	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+dataLen))
	copy(buf[8:], "WAVE")

	copy(buf[12:], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:], pcm.CanonicalChannels)
	binary.LittleEndian.PutUint32(buf[24:], pcm.CanonicalRate)
	binary.LittleEndian.PutUint32(buf[28:], pcm.CanonicalRate*pcm.CanonicalChannels*2) // byte rate
	binary.LittleEndian.PutUint16(buf[32:], pcm.CanonicalChannels*2)                   // block align
	binary.LittleEndian.PutUint16(buf[34:], 16)                                        // bits per sample

	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(dataLen))

	encodeInt16(buf[44:], samples)
	return buf
}

// encodeInt16 converts float32 samples to clamped little-endian int16.
func encodeInt16(dst []byte, samples []float32) {
	for i, s := range samples {
		v := int32(s * 32767.0)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(int16(v)))
	}
}
