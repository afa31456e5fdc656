package core

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiconform/api/schemas"
)

// CheckerType distinguishes checkers that need a rendering session from
// those that only read the document.
type CheckerType string

const (
	// TypeStatic checkers operate on the parsed document tree.
	TypeStatic CheckerType = "STATIC"
	// TypeRendered checkers drive a live page.
	TypeRendered CheckerType = "RENDERED"
)

// BaseChecker carries the identity shared by every checker. It is embedded
// by concrete checkers to avoid repeating the accessors.
type BaseChecker struct {
	name        string
	description string
	checkerType CheckerType
	checks      []schemas.CheckName
	Logger      *zap.Logger
}

// NewBaseChecker builds a BaseChecker with a logger named after the checker.
func NewBaseChecker(name, description string, t CheckerType, checks []schemas.CheckName, logger *zap.Logger) *BaseChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseChecker{
		name:        name,
		description: description,
		checkerType: t,
		checks:      checks,
		Logger:      logger.Named(name),
	}
}

func (b *BaseChecker) Name() string                { return b.name }
func (b *BaseChecker) Description() string         { return b.description }
func (b *BaseChecker) Type() CheckerType           { return b.checkerType }
func (b *BaseChecker) Checks() []schemas.CheckName { return b.checks }
