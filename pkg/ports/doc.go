/*
Package ports defines the driven ports (interfaces) for the Arbor scene
core.

These interfaces decouple the core from external implementations,
allowing scenes to load from disk, memory or anything else, and letting
editor tooling share preflight metadata through a store.

# Key Interfaces

  - ResourceLoader: reads scene files by project-relative path.
  - Watchable: optional change notification for hot-reload.
  - MetadataStore: persists scanned SceneMetadata for tooling.
*/
package ports
