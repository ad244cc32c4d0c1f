//go:build !cgo

package syntax

import (
	"context"

	"hotdelta/internal/decl"
	"hotdelta/internal/errors"
)

// Parser is unavailable when cgo is disabled.
type Parser struct{}

// NewParser returns nil when cgo is disabled.
func NewParser() *Parser {
	return nil
}

// IsAvailable reports whether C# parsing is compiled in.
func IsAvailable() bool {
	return false
}

// Parse always fails when cgo is disabled.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (*decl.Document, error) {
	return nil, errors.Newf(errors.ParseFailed, "%s: C# parsing requires a cgo build", path)
}
