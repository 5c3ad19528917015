package deployer

import "errors"

// Error kinds returned by Deployer implementations. Absence of a container is
// reported as ErrContainerNotFound wrapped together with the operation kind.
var (
	ErrRuntimeUnreachable = errors.New("container runtime unreachable")
	ErrPullFailed         = errors.New("image pull failed")
	ErrCreateFailed       = errors.New("container creation failed")
	ErrStartFailed        = errors.New("container start failed")
	ErrRemoveFailed       = errors.New("container removal failed")
	ErrContainerNotFound  = errors.New("container not found")
)
