package packager

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/oshokin/snapx/internal/pkgextract"
)

// writeArchive writes a package with manifest and every file under inputDir
// placed below lib/<framework>/.
func writeArchive(ctx context.Context, w io.Writer, manifest *pkgextract.Manifest, framework, inputDir string) error {
	writer := zip.NewWriter(w)
	writer.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	manifestWriter, err := writer.Create(manifest.Metadata.ID + pkgextract.ManifestExt)
	if err != nil {
		return fmt.Errorf("add manifest: %w", err)
	}

	if err = manifest.Encode(manifestWriter); err != nil {
		return err
	}

	root := path.Join("lib", framework)

	err = filepath.WalkDir(inputDir, func(filePath string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(inputDir, filePath)
		if err != nil {
			return err
		}

		if rel == "." {
			return nil
		}

		name := path.Join(root, filepath.ToSlash(rel))

		info, err := entry.Info()
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}

		if entry.IsDir() {
			header.Name = name + "/"
			_, err = writer.CreateHeader(header)

			return err
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		header.Name = name
		header.Method = zip.Deflate

		return addFile(writer, header, filePath)
	})
	if err != nil {
		return fmt.Errorf("add payload: %w", err)
	}

	return writer.Close()
}

func addFile(writer *zip.Writer, header *zip.FileHeader, filePath string) error {
	dst, err := writer.CreateHeader(header)
	if err != nil {
		return err
	}

	src, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		return err
	}

	defer func() {
		_ = src.Close()
	}()

	_, err = io.Copy(dst, src)

	return err
}
