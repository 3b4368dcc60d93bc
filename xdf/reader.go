package xdf

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
)

// Chunk tags defined by the XDF specification.
const (
	tagFileHeader   = 1
	tagStreamHeader = 2
	tagSamples      = 3
	tagClockOffset  = 4
	tagBoundary     = 5
	tagStreamFooter = 6
)

// Load reads a complete XDF container from disk.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("xdf: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read reads a complete XDF container from r.
//
// All sample chunks are materialized; after reading, every stream's
// timestamps have per-sample values (deduced from the nominal rate
// where the recorder omitted them) with the stream's mean clock
// offset applied.
func Read(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, 4)
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("xdf: reading magic: %w", err)
	}
	if string(magic) != "XDF:" {
		return nil, ErrBadMagic
	}

	streams := make(map[uint32]*Stream)
	var order []uint32

	for {
		tag, content, err := readChunk(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch tag {
		case tagStreamHeader:
			s, id, err := parseStreamHeader(content)
			if err != nil {
				return nil, err
			}
			if _, dup := streams[id]; !dup {
				order = append(order, id)
			}
			streams[id] = s

		case tagSamples:
			if err := parseSamples(content, streams); err != nil {
				return nil, err
			}

		case tagClockOffset:
			if err := parseClockOffset(content, streams); err != nil {
				return nil, err
			}

		case tagFileHeader, tagBoundary, tagStreamFooter:
			// Not needed for offline analysis.
		}
	}

	file := &File{}
	for _, id := range order {
		s := streams[id]
		applyClockOffset(s)
		file.Streams = append(file.Streams, s)
	}
	return file, nil
}

// readChunk reads one chunk frame: a length-size byte, the length
// itself, and the tagged content. The encoded length covers the tag
// and content.
func readChunk(br *bufio.Reader) (uint16, []byte, error) {
	sizeBytes, err := br.ReadByte()
	if err != nil {
		return 0, nil, err
	}

	length, err := readUint(br, int(sizeBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("xdf: reading chunk length: %w", err)
	}
	if length < 2 {
		return 0, nil, fmt.Errorf("xdf: chunk length %d too short", length)
	}

	if length > math.MaxInt64 {
		return 0, nil, fmt.Errorf("xdf: chunk length %d too large", length)
	}

	// A corrupt length field must fail at the end of the input, not
	// as a giant upfront allocation.
	var body bytes.Buffer
	if _, err := io.CopyN(&body, br, int64(length)); err != nil {
		return 0, nil, fmt.Errorf("xdf: reading chunk body: %w", err)
	}
	buf := body.Bytes()

	tag := binary.LittleEndian.Uint16(buf[:2])
	return tag, buf[2:], nil
}

// readUint reads a little-endian unsigned integer of 1, 4, or 8 bytes.
func readUint(r io.Reader, size int) (uint64, error) {
	switch size {
	case 1:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		return uint64(b[0]), nil
	case 4:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(b[:])), nil
	case 8:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(b[:]), nil
	default:
		return 0, fmt.Errorf("xdf: invalid length size %d", size)
	}
}

type streamInfoXML struct {
	Name          string  `xml:"name"`
	Type          string  `xml:"type"`
	ChannelCount  int     `xml:"channel_count"`
	NominalSRate  float64 `xml:"nominal_srate"`
	ChannelFormat string  `xml:"channel_format"`
	Hostname      string  `xml:"hostname"`
	Desc          struct {
		Channels struct {
			Channel []struct {
				Label string `xml:"label"`
			} `xml:"channel"`
		} `xml:"channels"`
	} `xml:"desc"`
}

func parseStreamHeader(content []byte) (*Stream, uint32, error) {
	if len(content) < 4 {
		return nil, 0, fmt.Errorf("xdf: truncated stream header")
	}
	id := binary.LittleEndian.Uint32(content[:4])

	var info streamInfoXML
	if err := xml.Unmarshal(content[4:], &info); err != nil {
		return nil, 0, fmt.Errorf("xdf: stream %d header: %w", id, err)
	}

	s := &Stream{
		ID:         id,
		Name:       info.Name,
		Type:       info.Type,
		Hostname:   info.Hostname,
		SampleRate: info.NominalSRate,
		Format:     info.ChannelFormat,
	}
	for _, ch := range info.Desc.Channels.Channel {
		s.ChannelLabels = append(s.ChannelLabels, ch.Label)
	}
	// Recorders do not always describe channels; fall back to the
	// declared count with empty labels so column math stays valid.
	for len(s.ChannelLabels) < info.ChannelCount {
		s.ChannelLabels = append(s.ChannelLabels, "")
	}
	return s, id, nil
}

func formatSize(format string) (int, error) {
	switch format {
	case FormatInt8:
		return 1, nil
	case FormatInt16:
		return 2, nil
	case FormatInt32, FormatFloat32:
		return 4, nil
	case FormatInt64, FormatDouble:
		return 8, nil
	default:
		return 0, fmt.Errorf("xdf: unsupported channel format %q", format)
	}
}

func parseSamples(content []byte, streams map[uint32]*Stream) error {
	rd := bytes.NewReader(content)

	var idb [4]byte
	if _, err := io.ReadFull(rd, idb[:]); err != nil {
		return fmt.Errorf("xdf: sample chunk: %w", err)
	}
	id := binary.LittleEndian.Uint32(idb[:])

	s, ok := streams[id]
	if !ok {
		return fmt.Errorf("xdf: samples for unknown stream %d", id)
	}

	sizeBytes, err := rd.ReadByte()
	if err != nil {
		return fmt.Errorf("xdf: sample chunk: %w", err)
	}
	count, err := readUint(rd, int(sizeBytes))
	if err != nil {
		return fmt.Errorf("xdf: sample count: %w", err)
	}

	nchan := len(s.ChannelLabels)
	for range count {
		ts, err := readSampleTimestamp(rd, s)
		if err != nil {
			return err
		}
		s.Timestamps = append(s.Timestamps, ts)

		if s.Format == FormatString {
			row := make([]string, nchan)
			for c := range nchan {
				row[c], err = readString(rd)
				if err != nil {
					return fmt.Errorf("xdf: stream %q sample: %w", s.Name, err)
				}
			}
			s.Strings = append(s.Strings, row)
			continue
		}

		size, err := formatSize(s.Format)
		if err != nil {
			return err
		}
		row := make([]float64, nchan)
		raw := make([]byte, size)
		for c := range nchan {
			if _, err := io.ReadFull(rd, raw); err != nil {
				return fmt.Errorf("xdf: stream %q sample: %w", s.Name, err)
			}
			row[c] = decodeValue(raw, s.Format)
		}
		s.Series = append(s.Series, row)
	}
	return nil
}

// readSampleTimestamp reads the optional per-sample timestamp. When
// the recorder omitted it, the timestamp is deduced from the previous
// one and the nominal rate.
func readSampleTimestamp(rd *bytes.Reader, s *Stream) (float64, error) {
	tsBytes, err := rd.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("xdf: sample timestamp: %w", err)
	}

	if tsBytes == 8 {
		var b [8]byte
		if _, err := io.ReadFull(rd, b[:]); err != nil {
			return 0, fmt.Errorf("xdf: sample timestamp: %w", err)
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b[:])), nil
	}

	if n := len(s.Timestamps); n > 0 {
		prev := s.Timestamps[n-1]
		if s.SampleRate > 0 {
			return prev + 1/s.SampleRate, nil
		}
		return prev, nil
	}
	return 0, nil
}

func readString(rd *bytes.Reader) (string, error) {
	sizeBytes, err := rd.ReadByte()
	if err != nil {
		return "", err
	}
	length, err := readUint(rd, int(sizeBytes))
	if err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(rd, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func decodeValue(raw []byte, format string) float64 {
	switch format {
	case FormatInt8:
		return float64(int8(raw[0]))
	case FormatInt16:
		return float64(int16(binary.LittleEndian.Uint16(raw)))
	case FormatInt32:
		return float64(int32(binary.LittleEndian.Uint32(raw)))
	case FormatInt64:
		return float64(int64(binary.LittleEndian.Uint64(raw)))
	case FormatFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(raw)))
	case FormatDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(raw))
	}
	return 0
}

func parseClockOffset(content []byte, streams map[uint32]*Stream) error {
	if len(content) != 20 {
		return fmt.Errorf("xdf: clock offset chunk has %d bytes, want 20", len(content))
	}
	id := binary.LittleEndian.Uint32(content[:4])
	offset := math.Float64frombits(binary.LittleEndian.Uint64(content[12:20]))

	if s, ok := streams[id]; ok {
		s.clockOffsets = append(s.clockOffsets, offset)
	}
	return nil
}

// applyClockOffset shifts a stream's timestamps by the mean of its
// recorded clock offsets, mapping them onto the recorder's clock.
func applyClockOffset(s *Stream) {
	if len(s.clockOffsets) == 0 {
		return
	}
	var sum float64
	for _, v := range s.clockOffsets {
		sum += v
	}
	mean := sum / float64(len(s.clockOffsets))
	for i := range s.Timestamps {
		s.Timestamps[i] += mean
	}
}
