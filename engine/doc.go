// Package engine wires every subsystem together behind a single Engine
// façade: create_workflow, start_run, get_run, list_runs/list_workflows/
// get_workflow, and BusinessObject CRUD, all as plain Go methods,
// independent of any transport. Construction follows a functional-options
// New(store, opts...) pattern.
//
// # Building an Engine
//
//	eng, err := engine.New(store,
//	    engine.WithLogger(logger),
//	    engine.WithActions(action.NewDefaultRegistry()),
//	)
//	if err := eng.Start(ctx); err != nil {
//	    ...
//	}
//	defer eng.Stop(ctx)
//
// Start resumes any Runs left in RUNNING by a prior crash before
// returning.
package engine
