//go:build !windows

package codegen

import (
	"io"
	"strings"

	"modernc.org/libqbe"
)

// runQBE assembles il for target with the QBE linked into the binary.
func runQBE(target, il string, asm io.Writer) error {
	return libqbe.Main(target, "input.ssa", strings.NewReader(il), asm, nil)
}
