package git

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
)

// Change is a declaration file touched since a base revision.
type Change struct {
	Path    string
	Deleted bool
}

// ChangedDeclarations runs git diff in dir and returns the TypeScript files changed
// between baseRef and the working tree. Paths are relative to dir.
func ChangedDeclarations(ctx context.Context, dir, baseRef string) ([]Change, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--name-status", "--relative", baseRef, "--", "*.ts")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, errors.Newf("git diff against %s failed: %s", baseRef, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, errors.Wrapf(err, "git diff against %s failed", baseRef)
	}
	return parseNameStatus(output), nil
}

// parseNameStatus reads `git diff --name-status` output. A rename yields a deletion
// of the old path and a change of the new one.
func parseNameStatus(output []byte) []Change {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	var changes []Change
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 2 || fields[0] == "" {
			continue
		}
		switch status := fields[0][0]; status {
		case 'D':
			changes = appendDeclaration(changes, fields[1], true)
		case 'R', 'C':
			if len(fields) < 3 {
				continue
			}
			if status == 'R' {
				changes = appendDeclaration(changes, fields[1], true)
			}
			changes = appendDeclaration(changes, fields[2], false)
		default:
			changes = appendDeclaration(changes, fields[1], false)
		}
	}
	return changes
}

func appendDeclaration(changes []Change, path string, deleted bool) []Change {
	if !strings.HasSuffix(path, ".ts") {
		return changes
	}
	return append(changes, Change{Path: path, Deleted: deleted})
}
