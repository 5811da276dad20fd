package graph

import (
	"context"
	"errors"
	"fmt"

	"sickfits-be/internal/apperr"
	"sickfits-be/internal/logger"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
)

// presentError maps an error to its client shape. Parse and validation errors
// carry no cause and pass through; resolver errors are reported by kind, and
// unclassified ones are logged and masked.
func presentError(ctx context.Context, err error) *gqlerror.Error {
	var gqlErr *gqlerror.Error
	if !errors.As(err, &gqlErr) {
		gqlErr = gqlerror.WrapPath(graphql.GetPath(ctx), err)
	}

	cause := gqlErr.Unwrap()
	if cause == nil {
		return gqlErr
	}

	kind := apperr.KindOf(cause)
	if kind == apperr.KindInternal {
		logger.FromCtx(ctx).Error("graphql field failed",
			zap.String("path", gqlErr.Path.String()),
			zap.Error(cause),
		)
	}

	return &gqlerror.Error{
		Message:    apperr.Public(cause),
		Path:       gqlErr.Path,
		Extensions: map[string]interface{}{"code": string(kind)},
	}
}

// recoverResolver turns a resolver panic into an internal error.
func recoverResolver(ctx context.Context, p any) error {
	logger.FromCtx(ctx).Error("resolver panicked",
		zap.Any("panic", p),
		zap.Stack("stack"),
	)
	return fmt.Errorf("resolver panic: %v", p)
}
