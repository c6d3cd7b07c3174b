package lookup

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/somali-phrase-book/pkg/health"
)

// StateReporter is satisfied by *loader.Loader.
type StateReporter interface {
	State() loader.State
	Err() error
}

// ReadinessCheck maps the loader lifecycle onto health statuses: ready is
// up, uninitialized and loading are degraded, failed is down.
func ReadinessCheck(l StateReporter) health.Check {
	return func(context.Context) health.ComponentHealth {
		switch state := l.State(); state {
		case loader.StateReady:
			return health.ComponentHealth{Status: health.StatusUp}
		case loader.StateFailed:
			msg := state.String()
			if err := l.Err(); err != nil {
				msg = err.Error()
			}
			return health.ComponentHealth{Status: health.StatusDown, Message: msg}
		default:
			return health.ComponentHealth{Status: health.StatusDegraded, Message: state.String()}
		}
	}
}
