package checksum

import (
	"context"
	"crypto"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/snapx/internal/logger"

	// Register the supported hash functions.
	_ "crypto/sha1" //nolint:gosec // SHA-1 is offered for legacy signatures only.
	_ "crypto/sha256"
	_ "crypto/sha512"
)

// Algorithm names accepted by Parse.
const (
	SHA1   = "sha1"
	SHA256 = "sha256"
	SHA512 = "sha512"
)

// DefaultHash is used for release index checksums.
const DefaultHash = crypto.SHA512

var (
	errHashUnavailable  = errors.New("hash function unavailable")
	errUnknownAlgorithm = errors.New("unknown checksum algorithm")
)

var algorithms = map[string]crypto.Hash{
	SHA1:   crypto.SHA1,
	SHA256: crypto.SHA256,
	SHA512: crypto.SHA512,
}

// Parse maps an algorithm name to its hash function.
func Parse(name string) (crypto.Hash, error) {
	hash, ok := algorithms[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%w %q", errUnknownAlgorithm, name)
	}

	return hash, nil
}

// File returns the digest of the file at path, streaming its contents.
func File(path string, hash crypto.Hash) ([]byte, error) {
	if !hash.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := hash.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// Base64 encodes a digest the way the release index stores it.
func Base64(digest []byte) string {
	return base64.StdEncoding.EncodeToString(digest)
}

// Options are inputs of the checksum verbs.
type Options struct {
	// Algorithm is sha1, sha256 or sha512.
	Algorithm string
	// Path is the file to hash.
	Path string
	// Output receives the hex digest line.
	Output io.Writer
}

// Run prints the lowercase hex digest of opts.Path.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, opts.Algorithm)

	hash, err := Parse(opts.Algorithm)
	if err != nil {
		return err
	}

	digest, err := File(opts.Path, hash)
	if err != nil {
		return err
	}

	logger.DebugKV(ctx, "Calculated checksum", "path", opts.Path)

	_, err = fmt.Fprintln(opts.Output, hex.EncodeToString(digest))

	return err
}
