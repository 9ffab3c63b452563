// Package digest computes checksums of local files so they can be compared
// against the digests remote sources publish. Digests are used for change
// detection only, never for verification of authenticity.
package digest

import (
	"crypto/md5"  //nolint:gosec // change detection only
	"crypto/sha1" //nolint:gosec // change detection only
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Algorithm names a digest function
type Algorithm string

const (
	// MD5 is used by GitHub release assets and dev.bukkit.org files
	MD5 Algorithm = "md5"

	// SHA1 is the default Maven sidecar algorithm
	SHA1 Algorithm = "sha1"

	// SHA256 is used by the PaperMC builds API
	SHA256 Algorithm = "sha256"

	// SHA512 is accepted for Maven repositories publishing .sha512 sidecars
	SHA512 Algorithm = "sha512"
)

// Encoding is the textual representation a remote uses for a digest
type Encoding string

const (
	// Hex is lower-case hexadecimal
	Hex Encoding = "hex"

	// Base64 is standard padded base64
	Base64 Encoding = "base64"
)

// Digest is the raw checksum of a file. An empty Digest means the file does
// not exist.
type Digest []byte

// ParseAlgorithm validates an algorithm name
func ParseAlgorithm(name string) (Algorithm, error) {
	alg := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	switch alg {
	case MD5, SHA1, SHA256, SHA512:
		return alg, nil
	default:
		return "", fmt.Errorf("unsupported digest algorithm: %q", name)
	}
}

// ParseEncoding validates an encoding name
func ParseEncoding(name string) (Encoding, error) {
	enc := Encoding(strings.ToLower(strings.TrimSpace(name)))
	switch enc {
	case Hex, Base64:
		return enc, nil
	default:
		return "", fmt.Errorf("unsupported digest encoding: %q", name)
	}
}

// New returns a fresh hash.Hash for the algorithm
func New(alg Algorithm) (hash.Hash, error) {
	switch alg {
	case MD5:
		return md5.New(), nil //nolint:gosec // change detection only
	case SHA1:
		return sha1.New(), nil //nolint:gosec // change detection only
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm: %q", alg)
	}
}

// File streams the file at path through the algorithm. A missing file yields
// an empty Digest and no error; any other filesystem error is returned.
func File(path string, alg Algorithm) (Digest, error) {
	h, err := New(alg)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) // #nosec G304 -- destination paths come from configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Digest{}, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return h.Sum(nil), nil
}

// Empty reports whether the digest was computed for a missing file
func (d Digest) Empty() bool {
	return len(d) == 0
}

// Hex returns the lower-case hexadecimal form
func (d Digest) Hex() string {
	return hex.EncodeToString(d)
}

// Base64 returns the standard base64 form
func (d Digest) Base64() string {
	return base64.StdEncoding.EncodeToString(d)
}

// Encode returns the digest in the requested encoding
func (d Digest) Encode(enc Encoding) string {
	if enc == Base64 {
		return d.Base64()
	}
	return d.Hex()
}

// Normalize strips the whitespace and quote characters servers wrap header
// digests in, e.g. an ETag of "\"d41d8cd9...\"".
func Normalize(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', '\t', ' ', '"', '\'':
			return -1
		}
		return r
	}, value)
}

// Matches reports whether a remote digest string denotes the same content as
// local. A missing local file or an empty remote value never matches. Hex
// comparison ignores case; base64 comparison is exact.
func Matches(local Digest, remote string, enc Encoding) bool {
	remote = Normalize(remote)
	if local.Empty() || remote == "" {
		return false
	}
	if enc == Base64 {
		return local.Base64() == remote
	}
	return strings.EqualFold(local.Hex(), remote)
}
