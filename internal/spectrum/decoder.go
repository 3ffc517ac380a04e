package spectrum

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"gopkg.in/hraban/opus.v2"
)

// ErrUnsupportedFormat is returned for audio data no decoder recognises.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format is a recognised container format.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatOpus Format = "opus"
)

// Decoder yields mono samples in [-1, 1].
type Decoder interface {
	// SampleRate returns the decoded sample rate in Hz.
	SampleRate() int
	// Read fills dst with mono samples and returns how many were written.
	// It returns io.EOF once the stream is exhausted.
	Read(dst []float64) (int, error)
	Close() error
}

// Sniff identifies the container format from the leading bytes.
func Sniff(data []byte) (Format, error) {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV, nil
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return FormatOpus, nil
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FormatMP3, nil
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3, nil
	}
	return "", ErrUnsupportedFormat
}

// NewDecoder creates a decoder for data, choosing the format by sniffing.
func NewDecoder(data []byte) (Decoder, error) {
	format, err := Sniff(data)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatWAV:
		return newWAVDecoder(data)
	case FormatMP3:
		return newMP3Decoder(data)
	case FormatOpus:
		return newOpusDecoder(data)
	}
	return nil, ErrUnsupportedFormat
}

// wavDecoder reads PCM WAV through go-audio.
type wavDecoder struct {
	dec      *wav.Decoder
	buf      *audio.IntBuffer
	channels int
	scale    float64
}

func newWAVDecoder(data []byte) (*wavDecoder, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("wav: %w", ErrUnsupportedFormat)
	}

	format := dec.Format()
	channels := format.NumChannels
	if channels < 1 {
		channels = 1
	}
	depth := int(dec.BitDepth)
	if depth <= 0 {
		depth = 16
	}

	return &wavDecoder{
		dec:      dec,
		buf:      &audio.IntBuffer{Format: format, SourceBitDepth: depth},
		channels: channels,
		scale:    float64(int64(1) << (depth - 1)),
	}, nil
}

func (d *wavDecoder) SampleRate() int {
	return int(d.dec.SampleRate)
}

func (d *wavDecoder) Read(dst []float64) (int, error) {
	need := len(dst) * d.channels
	if cap(d.buf.Data) < need {
		d.buf.Data = make([]int, need)
	}
	d.buf.Data = d.buf.Data[:need]

	n, err := d.dec.PCMBuffer(d.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("wav: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	frames := n / d.channels
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < d.channels; c++ {
			sum += d.buf.Data[i*d.channels+c]
		}
		dst[i] = float64(sum) / float64(d.channels) / d.scale
	}
	return frames, nil
}

func (d *wavDecoder) Close() error {
	return nil
}

// mp3Decoder reads MP3 through go-mp3, which always yields 16-bit stereo.
type mp3Decoder struct {
	dec *mp3.Decoder
	raw []byte
}

func newMP3Decoder(data []byte) (*mp3Decoder, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	return &mp3Decoder{dec: dec}, nil
}

func (d *mp3Decoder) SampleRate() int {
	return d.dec.SampleRate()
}

func (d *mp3Decoder) Read(dst []float64) (int, error) {
	const frameBytes = 4
	need := len(dst) * frameBytes
	if cap(d.raw) < need {
		d.raw = make([]byte, need)
	}
	d.raw = d.raw[:need]

	n, err := io.ReadFull(d.dec, d.raw)
	frames := n / frameBytes
	for i := 0; i < frames; i++ {
		l := int16(uint16(d.raw[i*4]) | uint16(d.raw[i*4+1])<<8)
		r := int16(uint16(d.raw[i*4+2]) | uint16(d.raw[i*4+3])<<8)
		dst[i] = (float64(l) + float64(r)) / 2 / 32768
	}

	switch {
	case frames > 0:
		return frames, nil
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return 0, io.EOF
	default:
		return 0, fmt.Errorf("mp3: %w", err)
	}
}

func (d *mp3Decoder) Close() error {
	return nil
}

// opusDecoder reads Ogg Opus through libopusfile. Output is always 48 kHz.
type opusDecoder struct {
	stream   *opus.Stream
	channels int
	pcm      []int16
}

const opusSampleRate = 48000

func newOpusDecoder(data []byte) (*opusDecoder, error) {
	channels, err := opusChannels(data)
	if err != nil {
		return nil, err
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opus: %w", err)
	}
	return &opusDecoder{stream: stream, channels: channels}, nil
}

// opusChannels reads the channel count from the OpusHead packet in the
// first Ogg page.
func opusChannels(data []byte) (int, error) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	i := bytes.Index(head, []byte("OpusHead"))
	if i < 0 || i+9 >= len(head) {
		return 0, fmt.Errorf("opus: missing OpusHead: %w", ErrUnsupportedFormat)
	}
	channels := int(head[i+9])
	if channels < 1 {
		return 0, fmt.Errorf("opus: invalid channel count %d", channels)
	}
	return channels, nil
}

func (d *opusDecoder) SampleRate() int {
	return opusSampleRate
}

func (d *opusDecoder) Read(dst []float64) (int, error) {
	need := len(dst) * d.channels
	if cap(d.pcm) < need {
		d.pcm = make([]int16, need)
	}
	d.pcm = d.pcm[:need]

	n, err := d.stream.Read(d.pcm)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("opus: %w", err)
	}

	for i := 0; i < n; i++ {
		var sum float64
		for c := 0; c < d.channels; c++ {
			sum += float64(d.pcm[i*d.channels+c])
		}
		dst[i] = sum / float64(d.channels) / 32768
	}
	return n, nil
}

func (d *opusDecoder) Close() error {
	return d.stream.Close()
}
