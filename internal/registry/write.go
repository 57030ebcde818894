package registry

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// FileName is the file a package's registry is written to inside the output directory.
func FileName(packageName string) string {
	name := strings.TrimPrefix(packageName, "@")
	name = strings.ReplaceAll(name, "/", "__")
	return name + ".components.json"
}

// Write validates reg and writes it under dir, returning the written path.
func Write(dir string, reg *Registry) (string, error) {
	data, err := Marshal(reg)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create output directory %s", dir)
	}
	path := filepath.Join(dir, FileName(reg.Package))
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	return path, nil
}
