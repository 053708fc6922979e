package fallback

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Func is one path of a dual-path operation.
type Func func(ctx context.Context) (model.CommandResult, error)

// Do attempts the operation over the fast path, the management channel, and
// falls back to the slow path, the serial console, when the fast path fails.
//
// The slow path is never attempted when the fast path succeeds, serial lines
// are exclusive hardware and contention on them is avoided. When both paths
// fail the returned error aggregates the fast path stderr and the slow path
// failure, and carries the fast path's original exit code so the primary
// failure's severity reaches the shell.
func Do(ctx context.Context, logger *logrus.Entry, fast, slow Func) (model.CommandResult, error) {
	fastResult, fastErr := fast(ctx)
	if fastErr == nil && fastResult.Ok() {
		return fastResult, nil
	}

	fastDiag := fastResult.Stderr
	if fastErr != nil {
		fastDiag = fastErr.Error()
	}

	logger.WithFields(logrus.Fields{
		"exitCode": fastResult.ExitCode,
		"stderr":   fastDiag,
	}).Info("management channel failed, falling back to console")

	slowResult, slowErr := slow(ctx)
	if slowErr == nil && slowResult.Ok() {
		return slowResult, nil
	}

	if slowErr == nil {
		slowErr = errors.New(slowResult.Stderr)
	}

	aggregated := multierror.Append(
		errors.Wrap(model.ErrFastPath, fastDiag),
		errors.Wrap(model.ErrSlowPath, slowErr.Error()),
	)

	code := fastResult.ExitCode
	if code == 0 {
		code = 1
	}

	return fastResult, model.NewExitError(code, aggregated)
}
