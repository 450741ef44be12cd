// Package stepflow is a durable workflow execution engine. It accepts
// workflow definitions (a named DAG of steps), persists them, executes
// each step exactly once in dependency order, and survives a crash and
// restart without duplicating completed work or leaving persisted state
// inconsistent.
//
// stepflow is a library, not a service. Construct an Engine with
// engine.New against a Store, then call Engine.Start, which runs schema
// migration and resubmits any run a prior crash left RUNNING before
// returning.
//
// # Quick Start
//
//	eng, err := engine.New(memStore, engine.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := eng.Start(ctx); err != nil {
//	    return err
//	}
//
// # Architecture
//
// The engine is organized around the subsystems named in the
// specification this module implements: a TopoPlanner that linearizes a
// workflow's DAG once at run creation, a StepExecutor that drives one
// step through an idempotent atomic-commit protocol, a RunWorker that
// drives one Run's steps sequentially, a Supervisor that owns worker
// lifecycle, and a Recovery routine that resubmits any run left RUNNING
// after a crash. All of it is backed by a single Store interface, with
// an in-memory implementation for tests and a Bun-backed SQL
// implementation (Postgres or SQLite) for durability.
//
// All entity IDs are github.com/google/uuid.UUID values, wrapped by the
// id package.
package stepflow
