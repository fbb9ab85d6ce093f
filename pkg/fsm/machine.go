// Package fsm implements the per-launch pipeline as a finite state machine:
// manifest fetch, launcher self-update, running-instance coordination,
// artifact installation, and the final detached launch, using the
// superfly/fsm library.
package fsm

import (
	"context"

	"github.com/superfly/fsm"

	"github.com/validation-tool/launcher/pkg/errors"
)

// Register registers the launch pipeline FSM.
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[LaunchRequest, LaunchResponse], fsm.Resume, error) {
	start, resume, err := fsm.Register[LaunchRequest, LaunchResponse](manager, "launch").
		Start(StateFetchManifest, m.handleFetchManifest).
		To(StateSelfUpdate, m.handleSelfUpdate).
		To(StateCoordinate, m.handleCoordinate).
		To(StateInstallApp, m.handleInstallApp).
		To(StateInstallTools, m.handleInstallTools).
		To(StateLaunch, m.handleLaunch).
		End(StateFailed).
		Build(ctx)

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register FSM")
	}

	return start, resume, nil
}
