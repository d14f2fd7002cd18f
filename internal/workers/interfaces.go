// Package workers provides the background jobs of the sync engine: periodic
// queue processing, connectivity probing and retention maintenance.
// It defines the Worker interface and a Workers aggregate that runs multiple
// workers in a unified way.
package workers

import (
	"context"

	"github.com/MKhiriev/farm-sync/models"
)

// Worker is the interface implemented by every background job. Run is expected
// to block until ctx is cancelled; the aggregate launches each worker in its
// own goroutine.
type Worker interface {
	Run(ctx context.Context)
}

// Engine is the narrow coordinator view the jobs drive. Satisfied by
// [service.Coordinator].
type Engine interface {
	// Online reports the current connectivity flag.
	Online() bool

	// Sync runs one processing cycle.
	Sync(ctx context.Context) (models.SyncManifest, error)

	// CheckConnectivity probes the remote store and updates the online flag.
	CheckConnectivity(ctx context.Context) bool

	// Maintain runs the retention pass.
	Maintain(ctx context.Context)
}
