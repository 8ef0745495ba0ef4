package registration

import (
	"context"
	"time"
)

// Connectivity indica si el store principal está alcanzable.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// AlwaysOnline para los stores en memoria.
type AlwaysOnline struct{}

func (AlwaysOnline) Online(context.Context) bool { return true }

// Pinger lo cumple *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingConnectivity considera online si el ping responde dentro del timeout.
type PingConnectivity struct {
	DB      Pinger
	Timeout time.Duration
}

func (p PingConnectivity) Online(ctx context.Context) bool {
	if p.DB == nil {
		return false
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.DB.PingContext(ctx) == nil
}
