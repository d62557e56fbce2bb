package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arbordev/arbor/pkg/scene"
)

// Overlay contains dynamic state to visualize on the graph.
type Overlay struct {
	// ChangedScene highlights the scene a reload originated from.
	ChangedScene string
	// ImpactSet highlights the scenes transitively affected by it.
	ImpactSet []string
}

// GenerateMermaid produces a Mermaid flowchart (graph TD) of the scene
// dependency graph. Solid arrows are resolved references; dotted red
// arrows point at missing targets. Overlay styles mark a changed scene
// and its impact set if provided.
func GenerateMermaid(g *scene.DependencyGraph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	scenes := g.Scenes()
	sort.Strings(scenes)
	for _, path := range scenes {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", sanitizeMermaidID(path), path))
	}

	for _, path := range scenes {
		refs := g.References(path)
		sort.Strings(refs)
		for _, ref := range refs {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n",
				sanitizeMermaidID(path), sanitizeMermaidID(ref)))
		}
	}

	missing := g.Missing()
	if len(missing) > 0 {
		sb.WriteString("\n    %% Missing dependencies\n")
		sb.WriteString("    classDef missing fill:#fee2e2,stroke:#b91c1c,stroke-width:2px,color:#000;\n")
		seen := make(map[string]bool)
		for _, miss := range missing {
			safeTo := sanitizeMermaidID(miss.To)
			if !seen[safeTo] {
				seen[safeTo] = true
				sb.WriteString(fmt.Sprintf("    %s[\"%s (missing)\"]\n", safeTo, miss.To))
				sb.WriteString(fmt.Sprintf("    class %s missing;\n", safeTo))
			}
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", sanitizeMermaidID(miss.From), safeTo))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme
		sb.WriteString("    classDef changed fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef impacted fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")

		impacted := make(map[string]bool)
		for _, path := range overlay.ImpactSet {
			safeID := sanitizeMermaidID(path)
			if !impacted[safeID] && safeID != "" {
				impacted[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s impacted;\n", safeID))
			}
		}
		if overlay.ChangedScene != "" {
			sb.WriteString(fmt.Sprintf("    class %s changed;\n", sanitizeMermaidID(overlay.ChangedScene)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
