package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// WAVHeader represents the canonical 44-byte header of a PCM WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// WAVInfo contains metadata extracted from a WAV header
type WAVInfo struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
}

// fmtChunk holds the PCM fields of a "fmt " chunk
type fmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// ParseWAVInfo extracts metadata from WAV bytes
func ParseWAVInfo(data []byte) (*WAVInfo, error) {
	return parseWAV(bytes.NewReader(data))
}

// ReadWAVInfo reads the header of a WAV file on disk
func ReadWAVInfo(path string) (*WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer f.Close()

	info, err := parseWAV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV header from %s: %w", path, err)
	}
	return info, nil
}

// parseWAV walks the RIFF chunk list until it finds "fmt " and "data".
// ffmpeg inserts a LIST/INFO chunk between them, so chunks cannot be
// assumed to sit at fixed offsets.
func parseWAV(r io.Reader) (*WAVInfo, error) {
	var riff struct {
		ChunkID   [4]byte
		ChunkSize uint32
		Format    [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	if string(riff.ChunkID[:]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	if string(riff.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	var format fmtChunk
	fmtFound := false

	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("failed to read WAV chunk header: %w", err)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			if chunk.Size < 16 {
				return nil, fmt.Errorf("invalid WAV file: fmt chunk too short: %d bytes", chunk.Size)
			}
			if err := binary.Read(r, binary.LittleEndian, &format); err != nil {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			fmtFound = true
			if err := skipChunk(r, chunk.Size-16); err != nil {
				return nil, err
			}

		case "data":
			if !fmtFound {
				return nil, fmt.Errorf("invalid WAV file: missing fmt chunk")
			}
			return wavInfo(format, chunk.Size)

		default:
			if err := skipChunk(r, chunk.Size); err != nil {
				return nil, err
			}
		}
	}

	if !fmtFound {
		return nil, fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	return nil, fmt.Errorf("invalid WAV file: missing data chunk")
}

// skipChunk discards a chunk body including the pad byte RIFF adds after
// odd-sized chunks
func skipChunk(r io.Reader, size uint32) error {
	skip := int64(size) + int64(size%2)
	if skip == 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, skip); err != nil && err != io.EOF {
		return fmt.Errorf("failed to skip WAV chunk: %w", err)
	}
	return nil
}

func wavInfo(format fmtChunk, dataSize uint32) (*WAVInfo, error) {
	if format.AudioFormat != 1 {
		return nil, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", format.AudioFormat)
	}

	if format.SampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}

	bytesPerSample := uint32(format.BitsPerSample) / 8
	if bytesPerSample == 0 {
		return nil, fmt.Errorf("invalid bit depth: %d", format.BitsPerSample)
	}

	if format.NumChannels == 0 {
		return nil, fmt.Errorf("invalid channel count: 0")
	}

	numSamples := dataSize / bytesPerSample / uint32(format.NumChannels)
	duration := float64(numSamples) / float64(format.SampleRate)

	return &WAVInfo{
		SampleRate:    format.SampleRate,
		Channels:      format.NumChannels,
		BitsPerSample: format.BitsPerSample,
		Duration:      duration,
		DataSize:      dataSize,
	}, nil
}

// EncodeWAV encodes PCM-16 mono samples into WAV format. Used by tests to
// synthesize valid fixture files.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio samples")
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	numChannels := uint16(1)
	bitsPerSample := uint16(16)
	dataSize := uint32(len(samples) * 2)

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))

	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}
