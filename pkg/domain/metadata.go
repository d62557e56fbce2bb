package domain

import "time"

// SceneMetadata is the lightweight description of a scene file. It is
// computed by scanning records without materializing the node tree, so
// preflight validation across many scenes stays cheap.
type SceneMetadata struct {
	// Path is the stable project-relative identity of the scene.
	Path string `json:"path"`

	// References lists the scene paths this scene instances, in file
	// order, duplicates removed.
	References []string `json:"references,omitempty"`

	// Complexity is a coarse score: the number of records in the file.
	Complexity int `json:"complexity"`

	// ModTime is the last-modified stamp of the backing file, when the
	// resource loader can provide one.
	ModTime time.Time `json:"mod_time,omitzero"`
}
