package assetload

import (
	"context"
	"strings"
)

// ReleaseDiagnostic is invoked with the logical path each time a handle is
// released. It is a debugging aid; it must not block.
type ReleaseDiagnostic func(logicalPath string)

// WarnOnRelease returns a ReleaseDiagnostic that logs a warning when the
// released path contains any of substrings. It is meant to catch assets
// (shared fonts, for instance) that should stay loaded for the process
// lifetime.
func WarnOnRelease(logger *Logger, substrings ...string) ReleaseDiagnostic {
	if logger == nil {
		logger = NoopLogger()
	}

	return func(logicalPath string) {
		for _, s := range substrings {
			if s != "" && strings.Contains(logicalPath, s) {
				logger.WarnContext(context.Background(), "released a bundle expected to stay loaded",
					"logical_path", logicalPath,
					"match", s,
				)
				return
			}
		}
	}
}
