package source

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/neurokit/neurokit-go/internal/errors"
)

// OpenWAV opens a PCM WAV file as a Continuous provider. Samples are
// normalized to [-1, 1] and split per channel. The whole file is decoded
// at open; WAV is a demo and test source, not an acquisition format, so
// windowed decoding is not worth its complexity here.
func OpenWAV(path string, chanType ChannelType) (*MemorySource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer func() { _ = file.Close() }()

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.Newf("input is not a valid WAV audio file: %s", path).
			Category(errors.CategoryFileIO).
			Build()
	}

	divisor, err := audioDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, err
	}

	nChans := int(decoder.NumChans)
	if nChans < 1 {
		return nil, errors.Newf("WAV file reports %d channels", nChans).
			Category(errors.CategoryFileIO).
			Build()
	}

	buf := &audio.IntBuffer{
		Data:   make([]int, 65536),
		Format: &audio.Format{SampleRate: int(decoder.SampleRate), NumChannels: nChans},
	}

	data := make([][]float64, nChans)
	frame := 0
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, errors.New(fmt.Errorf("error decoding WAV samples: %w", err)).
				Category(errors.CategoryFileIO).
				Build()
		}
		if n == 0 {
			break
		}
		for i := 0; i < n; i++ {
			ch := (frame + i) % nChans
			data[ch] = append(data[ch], float64(buf.Data[i])/divisor)
		}
		frame += n
	}

	channels := make([]Channel, nChans)
	for i := range channels {
		channels[i] = Channel{
			Name: fmt.Sprintf("CH%03d", i+1),
			Type: chanType,
			Unit: "au",
			Cal:  1.0,
		}
	}

	info := Info{
		SFreq:    float64(decoder.SampleRate),
		Channels: channels,
	}
	return NewMemorySource(info, data)
}

// audioDivisor returns the normalization divisor for a PCM bit depth.
func audioDivisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, errors.Newf("unsupported audio file bit depth: %d", bitDepth).
			Category(errors.CategoryFileIO).
			Build()
	}
}
