package engine

import (
	"context"
	"sync"
)

// Instance is a running browser reachable over CDP.
type Instance interface {
	// ControlURL is the websocket debugger URL to connect to.
	ControlURL() string

	// Stop releases the instance. Implementations decide what releasing
	// means: a launched browser is killed, a remote one is left running.
	Stop() error
}

// Provider yields browser instances. It is the execution environment
// capability: where the browser runs is its concern, not the caller's.
type Provider interface {
	// Name returns the provider identifier (e.g. "local", "remote").
	Name() string

	Start(ctx context.Context) (Instance, error)
}

// Acquire starts an instance from p and returns it with a release function
// that stops it exactly once, however many times it is called. Callers
// defer release immediately so every exit path, panics included, frees the
// instance.
func Acquire(ctx context.Context, p Provider) (Instance, func() error, error) {
	inst, err := p.Start(ctx)
	if err != nil {
		return nil, nil, err
	}

	var (
		once    sync.Once
		stopErr error
	)
	release := func() error {
		once.Do(func() { stopErr = inst.Stop() })
		return stopErr
	}
	return inst, release, nil
}
