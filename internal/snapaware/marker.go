package snapaware

import (
	"bytes"
	"debug/elf"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// SectionName is the binary section holding the marker.
	SectionName = ".snapx"
	// FormatVersion is the only record layout understood.
	FormatVersion uint16 = 1
	// MarkerSize is the encoded record length.
	MarkerSize = len(Magic) + 2 + 4
	// scanChunk is the read size of the byte search.
	scanChunk = 64 << 10
)

// Magic starts every marker record.
const Magic = "SNAPXAWR"

var (
	// ErrNoMarker is returned for files without a marker record.
	ErrNoMarker = errors.New("no spec-aware marker")
	// ErrUnsupportedFormat is returned for marker records of an unknown layout.
	ErrUnsupportedFormat = errors.New("unsupported marker format")
)

// Marker is a decoded marker record.
type Marker struct {
	// FormatVersion is the record layout version.
	FormatVersion uint16
	// ProtocolVersion is the minimum install protocol the binary supports.
	ProtocolVersion uint32
}

// Encode returns the record for protocolVersion.
func Encode(protocolVersion uint32) []byte {
	record := make([]byte, MarkerSize)
	copy(record, Magic)
	binary.LittleEndian.PutUint16(record[len(Magic):], FormatVersion)
	binary.LittleEndian.PutUint32(record[len(Magic)+2:], protocolVersion)

	return record
}

// Decode parses a record starting at the beginning of data.
func Decode(data []byte) (*Marker, error) {
	if len(data) < MarkerSize || !bytes.HasPrefix(data, []byte(Magic)) {
		return nil, ErrNoMarker
	}

	marker := &Marker{
		FormatVersion:   binary.LittleEndian.Uint16(data[len(Magic):]),
		ProtocolVersion: binary.LittleEndian.Uint32(data[len(Magic)+2:]),
	}

	if marker.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, marker.FormatVersion)
	}

	return marker, nil
}

// ReadFile returns the marker embedded in the file at path.
func ReadFile(path string) (*Marker, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = file.Close()
	}()

	data, structured, err := sectionData(file)
	if err != nil {
		return nil, err
	}

	if structured {
		return Decode(data)
	}

	return search(file)
}

// sectionData returns the .snapx section of an ELF or PE file. structured is
// false when r is neither; a structured file without the section has no marker.
func sectionData(r io.ReaderAt) (data []byte, structured bool, err error) {
	var section interface{ Data() ([]byte, error) }

	if file, elfErr := elf.NewFile(r); elfErr == nil {
		structured = true

		if s := file.Section(SectionName); s != nil {
			section = s
		}
	} else if hasDOSHeader(r) {
		file, peErr := pe.NewFile(r)
		if peErr != nil {
			return nil, false, nil
		}

		structured = true

		// PE section names are limited to 8 bytes, ".snapx" fits.
		if s := file.Section(SectionName); s != nil {
			section = s
		}
	}

	if section == nil {
		return nil, structured, nil
	}

	if data, err = section.Data(); err != nil {
		return nil, true, fmt.Errorf("read %s section: %w", SectionName, err)
	}

	return data, true, nil
}

// hasDOSHeader reports whether r starts with the "MZ" signature of PE images.
func hasDOSHeader(r io.ReaderAt) bool {
	var signature [2]byte
	if _, err := r.ReadAt(signature[:], 0); err != nil {
		return false
	}

	return signature == [2]byte{'M', 'Z'}
}

// search scans r for the first record, keeping an overlap between chunks.
func search(r io.Reader) (*Marker, error) {
	magic := []byte(Magic)
	buf := make([]byte, 0, scanChunk+MarkerSize)
	chunk := make([]byte, scanChunk)

	for {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)

		if idx := bytes.Index(buf, magic); idx >= 0 && len(buf)-idx >= MarkerSize {
			return Decode(buf[idx:])
		} else if idx >= 0 && err == nil {
			buf = append(buf[:0], buf[idx:]...)

			continue
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrNoMarker
			}

			return nil, err
		}

		if keep := MarkerSize - 1; len(buf) > keep {
			buf = append(buf[:0], buf[len(buf)-keep:]...)
		}
	}
}
