package receipt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/rez-install/internal/domain/install"
)

// Repository defines persistence operations for install receipts.
type Repository interface {
	Load(ctx context.Context) (*install.Receipt, error)
	Save(ctx context.Context, receipt *install.Receipt) error
}

// FileRepository persists a receipt to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the receipt.
	path string
	// mu protects concurrent access to the receipt file.
	mu sync.Mutex
}

const (
	// fileSuffix is appended to "<name>-<version>" to form the receipt filename.
	fileSuffix = ".receipt.yaml"

	// filePermissions is the mode receipts are written with.
	filePermissions = 0o644
)

// ErrNotFound is returned when the receipt file does not exist yet.
var ErrNotFound = errors.New("receipt not found")

// PathFor returns where the receipt of a package version lives inside installRoot.
func PathFor(installRoot, name, version string) string {
	base := name
	if version != "" {
		base += "-" + version
	}

	return filepath.Join(installRoot, base+fileSuffix)
}

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the receipt location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the receipt from disk.
func (r *FileRepository) Load(_ context.Context) (*install.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read receipt: %w", err)
	}

	var receipt install.Receipt
	if err = yaml.Unmarshal(contents, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}

	if receipt.Files == nil {
		receipt.Files = make(map[string]string)
	}

	return &receipt, nil
}

// Save writes the receipt to disk, replacing any previous one.
func (r *FileRepository) Save(_ context.Context, receipt *install.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", install.ErrDestinationUnwritable, err)
	}

	if err = os.WriteFile(r.path, data, filePermissions); err != nil {
		return fmt.Errorf("%w: write receipt: %w", install.ErrDestinationUnwritable, err)
	}

	return nil
}
