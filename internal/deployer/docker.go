package deployer

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/go-connections/nat"
)

// DockerOptions configures the connection to the Docker Engine.
type DockerOptions struct {
	// Host is the engine address, e.g. "unix:///var/run/docker.sock".
	// Empty means DOCKER_HOST or the platform default.
	Host string
	// TLS, when set, is used for tcp:// hosts.
	TLS *tls.Config
}

// DockerDeployer implements Deployer using the Docker API.
type DockerDeployer struct {
	cli *client.Client
}

// NewDockerDeployer creates a DockerDeployer with a single shared client.
func NewDockerDeployer(opts DockerOptions) (*DockerDeployer, error) {
	clientOpts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}
	if opts.Host != "" {
		clientOpts = append(clientOpts, client.WithHost(opts.Host))
	}
	if opts.TLS != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(&http.Client{
			Transport: &http.Transport{TLSClientConfig: opts.TLS},
		}))
	}

	cli, err := client.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &DockerDeployer{cli: cli}, nil
}

// Close releases the underlying client.
func (d *DockerDeployer) Close() error {
	return d.cli.Close()
}

func (d *DockerDeployer) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRuntimeUnreachable, err)
	}
	return nil
}

// PullImage pulls image:tag and drains the progress stream, failing on the
// first error event.
func (d *DockerDeployer) PullImage(ctx context.Context, img, tag string, progress ProgressFunc) error {
	ref := img
	if tag != "" {
		ref = img + ":" + tag
	}

	reader, err := d.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return classify(ErrPullFailed, fmt.Sprintf("pull image %s", ref), err)
	}
	defer reader.Close()

	dec := json.NewDecoder(reader)
	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: read pull stream for %s: %w", ErrPullFailed, ref, err)
		}
		if msg.Error != nil {
			return fmt.Errorf("%w: pull image %s: %w", ErrPullFailed, ref, msg.Error)
		}
		if progress != nil {
			ev := PullProgress{ID: msg.ID, Status: msg.Status}
			if msg.Progress != nil {
				ev.Current = msg.Progress.Current
				ev.Total = msg.Progress.Total
			}
			progress(ev)
		}
	}
}

// CreateContainer creates a container without starting it.
func (d *DockerDeployer) CreateContainer(ctx context.Context, opts ContainerOpts) (*CreateResult, error) {
	exposedPorts := nat.PortSet{}
	portBindings := nat.PortMap{}
	for _, pm := range opts.Ports {
		cp := nat.Port(strconv.Itoa(pm.Container) + "/tcp")
		exposedPorts[cp] = struct{}{}
		hostPort := strconv.Itoa(pm.Host)
		if pm.Host == 0 {
			hostPort = "" // let Docker pick an ephemeral port
		}
		portBindings[cp] = []nat.PortBinding{
			{HostPort: hostPort},
		}
	}

	config := &container.Config{
		Image:        opts.Image,
		ExposedPorts: exposedPorts,
		Labels:       opts.Labels,
	}

	hostConfig := &container.HostConfig{
		PortBindings: portBindings,
	}

	resp, err := d.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, opts.Name)
	if err != nil {
		return nil, classify(ErrCreateFailed, fmt.Sprintf("create container %s", opts.Name), err)
	}

	return &CreateResult{ContainerID: resp.ID, Name: opts.Name}, nil
}

func (d *DockerDeployer) StartContainer(ctx context.Context, containerID string) error {
	if err := d.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return classify(ErrStartFailed, fmt.Sprintf("start container %s", containerID), err)
	}
	return nil
}

func (d *DockerDeployer) RemoveContainer(ctx context.Context, containerID string, opts RemoveOpts) error {
	err := d.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force:         opts.Force,
		RemoveVolumes: !opts.KeepVolumes,
	})
	if err != nil {
		return classify(ErrRemoveFailed, fmt.Sprintf("remove container %s", containerID), err)
	}
	return nil
}

func (d *DockerDeployer) InspectContainer(ctx context.Context, containerID string) (*ContainerStatus, error) {
	info, err := d.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return nil, classify(nil, fmt.Sprintf("inspect container %s", containerID), err)
	}

	status := &ContainerStatus{
		ID:   info.ID,
		Name: info.Name,
	}
	if info.State != nil {
		status.State = info.State.Status
		status.Running = info.State.Running
	}
	return status, nil
}

// classify wraps err with kind plus ErrRuntimeUnreachable or
// ErrContainerNotFound when the engine error says so.
func classify(kind error, op string, err error) error {
	switch {
	case client.IsErrConnectionFailed(err):
		if kind == nil {
			return fmt.Errorf("%w: %s: %w", ErrRuntimeUnreachable, op, err)
		}
		return fmt.Errorf("%w: %w: %s: %w", kind, ErrRuntimeUnreachable, op, err)
	case client.IsErrNotFound(err):
		if kind == nil {
			return fmt.Errorf("%w: %s: %w", ErrContainerNotFound, op, err)
		}
		return fmt.Errorf("%w: %w: %s: %w", kind, ErrContainerNotFound, op, err)
	case kind == nil:
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%w: %s: %w", kind, op, err)
	}
}
