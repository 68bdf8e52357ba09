// Package audio analyzes call recordings for noise and signal quality.
//
// The analyzer is a single-pass numeric transform: decoded samples are reduced
// to signal statistics, the statistics to quality metrics, and the metrics to a
// classified report. Each invocation owns its buffers exclusively; nothing is
// retained between calls.
package audio

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// Stream is one decoded recording, reduced to a single channel.
type Stream struct {
	Samples       []float64
	SampleRate    int
	Channels      int
	BitsPerSample int
	Frames        int
	FileSizeMB    float64
}

// Duration returns the stream length in seconds.
func (s *Stream) Duration() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(s.Frames) / float64(s.SampleRate)
}

// Decode reads a recording from disk and produces a Stream. Multi-channel
// sources keep the first channel only; channels are never averaged.
func Decode(path string) (*Stream, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, newError(ErrFileNotFound, fmt.Sprintf("file does not exist: %s", path), err)
	}
	if info.Size() == 0 {
		return nil, newError(ErrEmptyFile, fmt.Sprintf("file is empty: %s", path), nil)
	}

	var stream *Stream
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		stream, err = decodeWAV(path)
	case ".mp3":
		stream, err = decodeMP3(path)
	default:
		return nil, newError(ErrUnsupportedFormat,
			fmt.Sprintf("no decoder for %q", filepath.Ext(path)), nil)
	}
	if err != nil {
		return nil, err
	}
	if stream.Frames == 0 {
		return nil, newError(ErrDecode, "decoded stream has zero frames", nil)
	}
	stream.FileSizeMB = float64(info.Size()) / (1024 * 1024)
	return stream, nil
}

func decodeWAV(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(ErrFileNotFound, "open failed", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, newError(ErrDecode, "malformed wav container", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, newError(ErrDecode, "wav container holds no frames", nil)
	}

	bits := int(dec.BitDepth)
	switch bits {
	case 8, 16, 32:
	default:
		return nil, newError(ErrUnsupportedFormat,
			fmt.Sprintf("unsupported sample width: %d bits", bits), nil)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	samples := firstChannel(buf.Data, channels)

	return &Stream{
		Samples:       samples,
		SampleRate:    buf.Format.SampleRate,
		Channels:      channels,
		BitsPerSample: bits,
		Frames:        len(samples),
	}, nil
}

// decodeMP3 decodes via go-mp3, which always emits 16-bit little-endian stereo
// at the source sample rate.
func decodeMP3(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(ErrFileNotFound, "open failed", err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, newError(ErrDecode, "malformed mp3 container", err)
	}

	var interleaved []float64
	buf := make([]byte, 4096)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			for i := 0; i+1 < n; i += 2 {
				sample := int16(buf[i]) | int16(buf[i+1])<<8
				interleaved = append(interleaved, float64(sample))
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, newError(ErrDecode, "mp3 read failed", err)
		}
	}

	const channels = 2
	out := make([]float64, 0, len(interleaved)/channels+1)
	for i := 0; i < len(interleaved); i += channels {
		out = append(out, interleaved[i])
	}

	return &Stream{
		Samples:       out,
		SampleRate:    dec.SampleRate(),
		Channels:      channels,
		BitsPerSample: 16,
		Frames:        len(out),
	}, nil
}

// firstChannel strides an interleaved int buffer, keeping channel 0 and
// converting to float64 so later squaring cannot overflow.
func firstChannel(data []int, channels int) []float64 {
	if channels < 1 {
		channels = 1
	}
	out := make([]float64, 0, len(data)/channels+1)
	for i := 0; i < len(data); i += channels {
		out = append(out, float64(data[i]))
	}
	return out
}

// maxAmplitude returns the largest representable magnitude for a bit depth.
func maxAmplitude(bits int) float64 {
	return math.Exp2(float64(bits-1)) - 1
}
