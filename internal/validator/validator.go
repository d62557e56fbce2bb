package validator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/arbordev/arbor/pkg/domain"
	"github.com/arbordev/arbor/pkg/scene"
)

// Report summarizes a project preflight.
type Report struct {
	Scanned int
	Issues  []string
}

// Err condenses the report into a single error, or nil when clean.
func (r *Report) Err() error {
	if len(r.Issues) == 0 {
		return nil
	}
	return fmt.Errorf("found %d issues:\n- %s", len(r.Issues), strings.Join(r.Issues, "\n- "))
}

// ValidateProject preflights every scene file: metadata is scanned and
// registered into the dependency graph without materializing node
// trees, so malformed files, reference cycles, and missing dependencies
// all surface in one pass.
func ValidateProject(ctx context.Context, cache *scene.Cache, paths []string) (*Report, error) {
	report := &Report{}

	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	for _, path := range sorted {
		report.Scanned++
		if _, err := cache.LoadMetadata(ctx, path); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			var cyc *domain.CircularDependencyError
			if errors.As(err, &cyc) {
				report.Issues = append(report.Issues,
					fmt.Sprintf("circular dependency: %s", strings.Join(cyc.Cycle, " -> ")))
				continue
			}
			report.Issues = append(report.Issues, fmt.Sprintf("%s: %v", path, err))
		}
	}

	for _, miss := range cache.Graph().Missing() {
		report.Issues = append(report.Issues,
			fmt.Sprintf("missing dependency: %s -> %s", miss.From, miss.To))
	}

	return report, nil
}
