package pkgextract

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ManifestExt is the file extension of the package manifest.
const ManifestExt = ".nuspec"

// Manifest is the package identity stored in the nuspec file.
type Manifest struct {
	XMLName  xml.Name         `xml:"package"`
	Metadata ManifestMetadata `xml:"metadata"`
}

// ManifestMetadata holds the identity fields.
type ManifestMetadata struct {
	// ID is the package id.
	ID string `xml:"id"`
	// Version is the package version.
	Version string `xml:"version"`
	// Authors is a free-form author list.
	Authors string `xml:"authors,omitempty"`
	// Description is a free-form description.
	Description string `xml:"description,omitempty"`
}

// NewManifest creates a manifest for id and version.
func NewManifest(id, version, description string) *Manifest {
	return &Manifest{
		Metadata: ManifestMetadata{
			ID:          id,
			Version:     version,
			Description: description,
		},
	}
}

// ParseManifest decodes a nuspec document.
func ParseManifest(r io.Reader) (*Manifest, error) {
	manifest := new(Manifest)
	if err := xml.NewDecoder(r).Decode(manifest); err != nil {
		return nil, corrupt("decode manifest: %v", err)
	}

	if strings.TrimSpace(manifest.Metadata.ID) == "" || strings.TrimSpace(manifest.Metadata.Version) == "" {
		return nil, corrupt("manifest must contain id and version")
	}

	return manifest, nil
}

// Encode writes the manifest as an indented XML document.
func (m *Manifest) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")

	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	return encoder.Close()
}
