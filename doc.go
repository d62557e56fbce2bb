/*
Package arbor is a scene composition core for node-tree based
applications: it caches parsed scene files, tracks the dependency graph
between them, and manages live instances with per-instance property
overrides, pooling, and hot reload.

# Concept

A scene file describes a tree of typed nodes. Arbor parses each file
once into an immutable template and clones instances from it on demand.
Every customization an instance makes is recorded in its override map,
so the instance can be reloaded against an updated template, serialized,
or derived into variants without ever touching the shared template.
Scene-to-scene references form a dependency graph that is kept acyclic:
a reference that would close a cycle is rejected before any node tree is
built.

# Key Features

  - Parse-once templates: concurrent loads of one scene share a single parse.
  - Acyclic dependency graph with impact analysis for hot reload.
  - Override-based instancing: variants, serialization, reload idempotence.
  - Per-scene instance pools with exhaustion-driven growth.
  - Advisory performance monitoring with prometheus collectors.

# Usage

Initialize a Context over a project directory. You can use the default
filesystem loader or inject a custom one.

	package main

	import (
		"context"
		"log"

		"github.com/arbordev/arbor"
		"github.com/arbordev/arbor/pkg/domain"
	)

	func main() {
		eng, err := arbor.New("./game-project")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()

		// Create a live instance of a scene.
		enemy, err := eng.CreateInstance(ctx, "actors/Enemy.scene", "Boss", false)
		if err != nil {
			log.Fatal(err)
		}

		// Customize it without touching the shared template.
		if err := enemy.ApplyPropertyOverride("Enemy/health", domain.IntValue(500)); err != nil {
			log.Fatal(err)
		}

		// The template can change underneath; overrides survive reload.
		if err := enemy.Reload(ctx); err != nil {
			log.Fatal(err)
		}
	}
*/
package arbor
