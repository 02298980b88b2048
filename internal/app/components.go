package app

import (
	"github.com/projectenv/tools-index/internal/storage"
	"github.com/projectenv/tools-index/internal/sync/coordinator"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Store reads and writes the published index
	Store storage.Store

	// Pipeline regenerates the index, nil unless background generation is enabled
	Pipeline *Pipeline

	// Coordinator schedules background generation, nil unless enabled
	Coordinator coordinator.Coordinator
}
