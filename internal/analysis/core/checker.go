package core

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/document"
)

// StaticChecker analyzes a parsed document without rendering it.
type StaticChecker interface {
	Name() string
	Checks() []schemas.CheckName
	Run(doc *document.Document) []schemas.Facet
}

// RenderedChecker analyzes a live page. Implementations must convert every
// page error into facets rather than returning it.
type RenderedChecker interface {
	Name() string
	Checks() []schemas.CheckName
	Run(ctx context.Context, page schemas.Page) []schemas.Facet
}

// Guard runs fn and turns a panic into one error facet per check, so a
// misbehaving checker cannot take the rest of the run down with it.
func Guard(logger *zap.Logger, name string, checks []schemas.CheckName, fn func() []schemas.Facet) (facets []schemas.Facet) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Checker panicked",
				zap.String("checker", name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			facets = ErroredAll(checks, name, fmt.Errorf("checker %s panicked: %v", name, r))
		}
	}()
	return fn()
}
