package main

import (
	"fmt"

	"github.com/flowforge/agentflow/persistence"
	"github.com/flowforge/agentflow/workflow"
)

// buildPersistence resolves the catalog's persistence driver name into a
// workflow.PersistenceLayer. An empty or "memory" driver is the default so
// a catalog can omit the section entirely for quick experiments.
func buildPersistence(spec PersistenceSpec) (workflow.PersistenceLayer, error) {
	switch spec.Driver {
	case "", "memory":
		return persistence.NewMemoryStore(), nil
	case "sqlite":
		path := spec.Path
		if path == "" {
			path = "agentflow.db"
		}
		return persistence.NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown persistence driver %q (want memory or sqlite)", spec.Driver)
	}
}
