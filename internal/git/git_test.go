package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNameStatus(t *testing.T) {
	output := []byte("M\tpkg/index.d.ts\n" +
		"A\tpkg/new.d.ts\n" +
		"D\tpkg/old.d.ts\n" +
		"R087\tpkg/a.d.ts\tpkg/b.d.ts\n" +
		"C100\tpkg/c.d.ts\tpkg/d.d.ts\n" +
		"M\tREADME.md\n" +
		"\n")

	assert.Equal(t, []Change{
		{Path: "pkg/index.d.ts"},
		{Path: "pkg/new.d.ts"},
		{Path: "pkg/old.d.ts", Deleted: true},
		{Path: "pkg/a.d.ts", Deleted: true},
		{Path: "pkg/b.d.ts"},
		{Path: "pkg/d.d.ts"},
	}, parseNameStatus(output))
}

func TestParseNameStatus_Empty(t *testing.T) {
	assert.Empty(t, parseNameStatus(nil))
}
