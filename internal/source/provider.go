package source

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrNotExist is returned when a provider has no content for a path.
var ErrNotExist = errors.New("file does not exist")

// DeclarationExtensions are tried in order when reading a declaration file by its
// extension-less name.
var DeclarationExtensions = []string{".d.ts", ".ts"}

// Provider gives the resolver access to raw file contents.
type Provider interface {
	// ReadFile returns the content of the file at the exact path.
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// Exists reports whether a file exists at the exact path.
	Exists(ctx context.Context, path string) bool
}

// ReadDeclaration reads the declaration file for a path without extension.
func ReadDeclaration(ctx context.Context, p Provider, fileName string) ([]byte, string, error) {
	for _, ext := range DeclarationExtensions {
		full := fileName + ext
		if !p.Exists(ctx, full) {
			continue
		}
		data, err := p.ReadFile(ctx, full)
		if err != nil {
			return nil, full, errors.Wrapf(err, "failed to read %s", full)
		}
		return data, full, nil
	}
	return nil, fileName, errors.Wrapf(ErrNotExist, "no declaration file for %s", fileName)
}

// HasDeclaration reports whether a declaration file exists for a path without extension.
func HasDeclaration(ctx context.Context, p Provider, fileName string) bool {
	for _, ext := range DeclarationExtensions {
		if p.Exists(ctx, fileName+ext) {
			return true
		}
	}
	return false
}

// FS reads files from the local file system.
type FS struct{}

// NewFS creates a file system provider.
func NewFS() *FS {
	return &FS{}
}

func (f *FS) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.FromSlash(p))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotExist, "%s", p)
	}
	return data, err
}

func (f *FS) Exists(ctx context.Context, p string) bool {
	info, err := os.Stat(filepath.FromSlash(p))
	return err == nil && !info.IsDir()
}

// Memory serves files from an in-memory map. It is used for fixtures and for
// generating from content that never touched the disk.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
	reads map[string]int
}

// NewMemory creates a memory provider from path -> content pairs.
func NewMemory(files map[string]string) *Memory {
	m := &Memory{
		files: make(map[string][]byte, len(files)),
		reads: make(map[string]int),
	}
	for p, content := range files {
		m.files[path.Clean(p)] = []byte(content)
	}
	return m
}

// Put adds or replaces a file.
func (m *Memory) Put(p, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path.Clean(p)] = []byte(content)
}

func (m *Memory) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path.Clean(p)]
	if !ok {
		return nil, errors.Wrapf(ErrNotExist, "%s", p)
	}
	m.reads[path.Clean(p)]++
	return data, nil
}

func (m *Memory) Exists(ctx context.Context, p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[path.Clean(p)]
	return ok
}

// Reads returns how many times a path was read.
func (m *Memory) Reads(p string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads[path.Clean(p)]
}

// Paths lists every stored path in sorted order.
func (m *Memory) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// TrimDeclarationExtension strips a trailing declaration extension.
func TrimDeclarationExtension(p string) string {
	for _, ext := range DeclarationExtensions {
		if strings.HasSuffix(p, ext) {
			return strings.TrimSuffix(p, ext)
		}
	}
	return p
}
