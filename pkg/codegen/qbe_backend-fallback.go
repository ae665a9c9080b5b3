//go:build windows

package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// runQBE pipes il through the qbe found on PATH; libqbe does not build on
// Windows.
func runQBE(target, il string, asm io.Writer) error {
	path, err := exec.LookPath("qbe")
	if err != nil {
		return fmt.Errorf("libqbe is unavailable on windows and no qbe is on PATH: %w", err)
	}
	var stderr bytes.Buffer
	cmd := exec.Command(path, "-t", target, "-")
	cmd.Stdin, cmd.Stdout, cmd.Stderr = strings.NewReader(il), asm, &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return errors.New(msg)
		}
		return err
	}
	return nil
}
