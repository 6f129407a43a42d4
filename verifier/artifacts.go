package verifier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vocdoni/eerc-node/log"
	"github.com/vocdoni/eerc-node/types"
)

// CheckHashes determines if the hashes of the artifacts are checked when
// they are loaded or downloaded. It can be disabled with the
// EERC_CHECK_HASHES environment variable set to false or 0.
var CheckHashes = true

// BaseDir is the path where the artifact cache is expected to be found. If
// an artifact is not found there, it is downloaded and stored. Defaults to
// the env var EERC_ARTIFACTS_DIR or ~/.cache/eerc-artifacts.
var BaseDir string

func init() {
	if checkHashes := os.Getenv("EERC_CHECK_HASHES"); checkHashes != "" {
		if strings.ToLower(checkHashes) == "false" || checkHashes == "0" {
			CheckHashes = false
		}
	}
	if dir := os.Getenv("EERC_ARTIFACTS_DIR"); dir != "" {
		BaseDir = dir
		return
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		BaseDir = filepath.Join(os.TempDir(), "eerc-artifacts")
		return
	}
	BaseDir = filepath.Join(home, ".cache", "eerc-artifacts")
}

// Format is the encoding of a verifying key.
type Format string

const (
	// FormatGnark is a gnark groth16 BN254 verifying key (vk.WriteTo).
	FormatGnark Format = "gnark"
	// FormatCircom is a snarkjs verification_key.json.
	FormatCircom Format = "circom"
)

// Artifact holds the remote URL, the sha256 hash of the content and the
// content itself. Content is loaded from the local cache by hash or
// downloaded from the remote URL.
type Artifact struct {
	RemoteURL string
	Hash      types.HexBytes
	Content   []byte
}

// Load fills the artifact content. It tries the local cache first and falls
// back to downloading from RemoteURL. The content hash is checked in both
// cases.
func (a *Artifact) Load(ctx context.Context) error {
	if len(a.Content) != 0 {
		return nil
	}
	if len(a.Hash) == 0 {
		return fmt.Errorf("artifact hash not provided")
	}
	content, err := loadArtifact(a.Hash)
	if err != nil {
		return err
	}
	if content == nil {
		if a.RemoteURL == "" {
			return fmt.Errorf("artifact %x not found locally and remote url not provided", []byte(a.Hash))
		}
		if err := downloadAndStore(ctx, a.Hash, a.RemoteURL); err != nil {
			return err
		}
		if content, err = loadArtifact(a.Hash); err != nil {
			return err
		}
		if content == nil {
			return fmt.Errorf("no content found after download")
		}
	}
	a.Content = content
	return nil
}

// VerifierArtifact describes where the verifying key of one operation kind
// is found and how it is encoded.
type VerifierArtifact struct {
	Kind   Kind
	Format Format
	Key    *Artifact
}

// Verifier loads the key and returns the matching adapter.
func (va *VerifierArtifact) Verifier(ctx context.Context) (Verifier, error) {
	if va.Key == nil {
		return nil, fmt.Errorf("%s: no verifying key", va.Kind)
	}
	if err := va.Key.Load(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", va.Kind, err)
	}
	switch va.Format {
	case FormatGnark, "":
		v, err := NewGroth16(va.Key.Content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", va.Kind, err)
		}
		if n := NumInputs(va.Kind); v.NbPublicInputs() != n {
			return nil, fmt.Errorf("%s: verifying key expects %d public inputs, ledger provides %d",
				va.Kind, v.NbPublicInputs(), n)
		}
		return v, nil
	case FormatCircom:
		v, err := NewCircom(va.Key.Content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", va.Kind, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%s: unknown key format %q", va.Kind, va.Format)
	}
}

// LoadSet builds a verifier Set from the given artifacts, wrapping each
// verifier in a result cache when cacheSize is positive. Kinds without an
// artifact are left unset; the ledger configuration decides which are
// required.
func LoadSet(ctx context.Context, artifacts []*VerifierArtifact, cacheSize int) (Set, error) {
	set := Set{}
	for _, va := range artifacts {
		v, err := va.Verifier(ctx)
		if err != nil {
			return Set{}, err
		}
		if cacheSize > 0 {
			if v, err = NewCached(va.Kind, v, cacheSize); err != nil {
				return Set{}, err
			}
		}
		set.Set(va.Kind, v)
		log.Infow("verifier loaded", "kind", va.Kind.String(), "format", string(va.Format), "hash", va.Key.Hash.String())
	}
	return set, nil
}

func loadArtifact(hash []byte) ([]byte, error) {
	path := filepath.Join(BaseDir, hex.EncodeToString(hash))
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	if CheckHashes {
		fileHash := sha256.Sum256(content)
		if !bytes.Equal(fileHash[:], hash) {
			return nil, fmt.Errorf("hash mismatch for file %s: expected %x, got %x", path, hash, fileHash)
		}
	}
	return content, nil
}

// progressReader wraps an io.Reader and keeps track of the total bytes read.
type progressReader struct {
	reader io.Reader
	total  int64 // updated atomically
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	atomic.AddInt64(&pr.total, int64(n))
	return n, err
}

// downloadAndStore downloads a file from a URL and stores it in the local
// cache under its hash.
func downloadAndStore(ctx context.Context, expectedHash []byte, fileURL string) error {
	if _, err := url.Parse(fileURL); err != nil {
		return fmt.Errorf("error parsing the file URL provided: %w", err)
	}
	if err := os.MkdirAll(BaseDir, 0o755); err != nil {
		return fmt.Errorf("error creating the base directory: %w", err)
	}
	path := filepath.Join(BaseDir, hex.EncodeToString(expectedHash))
	partialPath := path + ".partial"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("error creating the file request: %w", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error performing the request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("error downloading file %s: http status: %d", fileURL, res.StatusCode)
	}
	fd, err := os.OpenFile(partialPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("error opening artifact file: %w", err)
	}
	defer fd.Close()

	hasher := sha256.New()
	pr := &progressReader{reader: res.Body}
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(io.MultiWriter(fd, hasher), pr)
		done <- err
	}()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for waiting := true; waiting; {
		select {
		case err := <-done:
			if err != nil {
				os.Remove(partialPath)
				return fmt.Errorf("error copying data to file: %w", err)
			}
			waiting = false
		case <-ticker.C:
			log.Debugw("downloading artifact", "url", fileURL,
				"downloaded", fmt.Sprintf("%.2fMiB", float64(atomic.LoadInt64(&pr.total))/(1024*1024)))
		}
	}
	if CheckHashes {
		if computed := hasher.Sum(nil); !bytes.Equal(computed, expectedHash) {
			os.Remove(partialPath)
			return fmt.Errorf("hash mismatch: expected %x, got %x", expectedHash, computed)
		}
	}
	if err := os.Rename(partialPath, path); err != nil {
		return fmt.Errorf("error renaming file: %w", err)
	}
	return nil
}
