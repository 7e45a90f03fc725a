package listen

import (
	"encoding/binary"
	"io"

	concatwav "github.com/moutend/go-wav"
)

const headerSize = 44

// DefaultSilenceThreshold is the mean absolute 16-bit amplitude below which
// a chunk counts as silence.
const DefaultSilenceThreshold = 50

func checkPCM(data []byte) error {
	if len(data) < headerSize {
		return ErrNotEnoughDataToParseWav
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return ErrInvalidWav
	}
	if binary.LittleEndian.Uint16(data[20:22]) != 1 {
		return ErrFileIsNotPCM
	}
	return nil
}

// PCM strips the canonical 44 byte header.
func PCM(data []byte) ([]byte, error) {
	if err := checkPCM(data); err != nil {
		return nil, err
	}
	return data[headerSize:], nil
}

// WavSampleRate reads the sample rate from the header.
func WavSampleRate(data []byte) (int, error) {
	if err := checkPCM(data); err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint32(data[24:28])), nil
}

// WavSilence is the mean absolute amplitude of a 16-bit wav.
func WavSilence(data []byte) (int, error) {
	pcm, err := PCM(data)
	if err != nil {
		return 0, err
	}
	if len(pcm) < 2 {
		return 0, nil
	}
	sum, count := 0, 0
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int(int16(binary.LittleEndian.Uint16(pcm[i:])))
		if sample < 0 {
			sample = -sample
		}
		sum += sample
		count++
	}
	return sum / count, nil
}

func IsWavSilent(data []byte, threshold int) (bool, error) {
	level, err := WavSilence(data)
	if err != nil {
		return false, err
	}
	return level < threshold, nil
}

// ConcatWav appends the samples of b after a.
func ConcatWav(a, b []byte) ([]byte, error) {
	first := &concatwav.File{}
	second := &concatwav.File{}
	if err := concatwav.Unmarshal(a, first); err != nil {
		return nil, err
	}
	if err := concatwav.Unmarshal(b, second); err != nil {
		return nil, err
	}

	out, err := concatwav.New(first.SamplesPerSec(), first.BitsPerSample(), first.Channels())
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(out, first); err != nil {
		return nil, err
	}
	if _, err := io.Copy(out, second); err != nil {
		return nil, err
	}
	return concatwav.Marshal(out)
}
