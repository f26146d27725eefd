package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestWAV writes interleaved 16-bit PCM frames and returns the path.
func writeTestWAV(t *testing.T, sampleRate, numChans int, frames []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, numChans, 1)
	err = enc.Write(&audio.IntBuffer{
		Data:   frames,
		Format: &audio.Format{SampleRate: sampleRate, NumChannels: numChans},
	})
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestOpenWAVStereo(t *testing.T) {
	// Three frames of two channels, interleaved L R L R L R.
	frames := []int{0, 16384, -16384, 8192, 32767, -32768}
	path := writeTestWAV(t, 1000, 2, frames)

	src, err := OpenWAV(path, TypeEEG)
	require.NoError(t, err)

	info := src.Info()
	assert.Equal(t, 1000.0, info.SFreq)
	require.Len(t, info.Channels, 2)
	assert.Equal(t, "CH001", info.Channels[0].Name)
	assert.Equal(t, "CH002", info.Channels[1].Name)
	assert.Equal(t, TypeEEG, info.Channels[0].Type)
	assert.EqualValues(t, 3, src.NSamples())

	data, err := src.Read([]int{0, 1}, 0, 3)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, data[0][0], 1e-9)
	assert.InDelta(t, -0.5, data[0][1], 1e-9)
	assert.InDelta(t, 32767.0/32768.0, data[0][2], 1e-9)
	assert.InDelta(t, 0.5, data[1][0], 1e-9)
	assert.InDelta(t, 0.25, data[1][1], 1e-9)
	assert.InDelta(t, -1.0, data[1][2], 1e-9)
}

func TestOpenWAVNotAWAVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	require.NoError(t, os.WriteFile(path, []byte("not audio"), 0o644))

	_, err := OpenWAV(path, TypeEEG)
	assert.Error(t, err)
}

func TestOpenWAVMissingFile(t *testing.T) {
	_, err := OpenWAV(filepath.Join(t.TempDir(), "absent.wav"), TypeEEG)
	assert.Error(t, err)
}
