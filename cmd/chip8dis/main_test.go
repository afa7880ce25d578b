package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestDisassembleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clear.ch8")
	assert.NoError(t, os.WriteFile(path, []byte{0x00, 0xE0, 0x12, 0x00}, 0o644))

	var out bytes.Buffer
	cmd := newCommand(&out)
	cmd.SetArgs([]string{path})
	assert.NoError(t, cmd.Execute())

	expected := `=== clear.ch8 ===
0x200: CLS -- Clear the display
0x202: JP NNN=0x200 -- Jump to address
=== END ===
`
	assert.Equal(t, expected, out.String())
}

func TestArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "none", args: []string{}},
		{name: "two", args: []string{"a.ch8", "b.ch8"}},
		{name: "missing file", args: []string{filepath.Join(os.TempDir(), "does-not-exist.ch8")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := newCommand(&out)
			cmd.SetArgs(tt.args)
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetOut(&bytes.Buffer{})

			assert.True(t, cmd.Execute() != nil)
			assert.Equal(t, "", out.String())
		})
	}
}
