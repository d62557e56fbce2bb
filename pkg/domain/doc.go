/*
Package domain contains the core scene-tree model for the Arbor engine.

It defines the fundamental entities of scene composition: Nodes, their
typed property bags, signals, and group membership. This package is kept
pure and free of external dependencies like I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - Node: a named, typed element of the tree. Owns its children; holds a
    non-owning back-reference to its parent.
  - Value: a closed tagged variant covering every property kind the core
    supports (bool, int, float, string, vec2, color, ref, list, map).
  - Signal: per-node event table with connect/emit semantics.
  - Behavior: capability-checked dispatch surface for attached external
    behaviors (scripting, physics, audio) without importing any of them.
*/
package domain
