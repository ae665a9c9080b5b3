package codegen

import (
	"bytes"

	"github.com/xplshn/xcc/pkg/config"
	"github.com/xplshn/xcc/pkg/ir"
)

// Backend turns a verified IR program into target text.
type Backend interface {
	// GenerateIR renders the program in the backend's own intermediate
	// language.
	GenerateIR(prog *ir.Program, cfg *config.Config) (string, error)
	// Generate produces assembly for the configured target.
	Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error)
}
