package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// Client wraps the Docker SDK with the operations the panel needs.
// It is constructed once at startup and handed to every consumer; there is
// no process-wide shared instance.
type Client struct {
	cli *client.Client
}

type ContainerConfig struct {
	Name        string
	Image       string
	Env         map[string]string
	GamePort    string // published on the same host port, tcp
	DataDir     string // bind-mounted at /data
	MemoryLimit int64
	CPULimit    float64
}

func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func (c *Client) PullImage(ctx context.Context, ref string) error {
	reader, err := c.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image: %w", err)
	}
	defer reader.Close()
	_, err = io.Copy(io.Discard, reader)
	return err
}

func (c *Client) CreateContainer(ctx context.Context, cfg ContainerConfig) (string, error) {
	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}

	exposedPorts := nat.PortSet{}
	portBindings := nat.PortMap{}
	if cfg.GamePort != "" {
		port := nat.Port(cfg.GamePort + "/tcp")
		exposedPorts[port] = struct{}{}
		portBindings[port] = []nat.PortBinding{{HostPort: cfg.GamePort}}
	}

	hostCfg := &container.HostConfig{
		PortBindings:  portBindings,
		RestartPolicy: container.RestartPolicy{Name: "unless-stopped"},
	}
	if cfg.DataDir != "" {
		hostCfg.Mounts = []mount.Mount{{
			Type:   mount.TypeBind,
			Source: cfg.DataDir,
			Target: "/data",
		}}
	}
	if cfg.MemoryLimit > 0 {
		hostCfg.Memory = cfg.MemoryLimit
	}
	if cfg.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(cfg.CPULimit * 1e9)
	}

	resp, err := c.cli.ContainerCreate(ctx, &container.Config{
		Image:        cfg.Image,
		Env:          env,
		ExposedPorts: exposedPorts,
		Tty:          true,
		OpenStdin:    true,
		AttachStdin:  true,
	}, hostCfg, nil, nil, cfg.Name)
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	return resp.ID, nil
}

func (c *Client) StartContainer(ctx context.Context, id string) error {
	return c.cli.ContainerStart(ctx, id, container.StartOptions{})
}

func (c *Client) StopContainer(ctx context.Context, id string) error {
	timeout := 30
	return c.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout})
}

func (c *Client) RestartContainer(ctx context.Context, id string) error {
	timeout := 30
	return c.cli.ContainerRestart(ctx, id, container.StopOptions{Timeout: &timeout})
}

func (c *Client) RemoveContainer(ctx context.Context, id string) error {
	return c.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}

// ContainerStatus returns the container state string ("running", "exited", ...).
func (c *Client) ContainerStatus(ctx context.Context, id string) (string, error) {
	resp, err := c.cli.ContainerInspect(ctx, id)
	if err != nil {
		return "unknown", err
	}
	return resp.State.Status, nil
}

func (c *Client) ContainerLogs(ctx context.Context, id string, tail string) (io.ReadCloser, error) {
	return c.cli.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Tail:       tail,
	})
}

// ContainerAttach attaches to the server process stdin/stdout for the
// interactive console.
func (c *Client) ContainerAttach(ctx context.Context, id string) (types.HijackedResponse, error) {
	return c.cli.ContainerAttach(ctx, id, container.AttachOptions{
		Stream: true,
		Stdin:  true,
		Stdout: true,
		Stderr: true,
	})
}

// SendCommand writes a single console command to the server's stdin.
func (c *Client) SendCommand(ctx context.Context, id, command string) error {
	attach, err := c.cli.ContainerAttach(ctx, id, container.AttachOptions{
		Stream: true,
		Stdin:  true,
	})
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer attach.Close()
	if _, err := attach.Conn.Write([]byte(command + "\n")); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

// ExecCapture runs argv inside the container and returns its combined output.
func (c *Client) ExecCapture(ctx context.Context, id string, argv []string) (string, error) {
	exec, err := c.cli.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          argv,
		AttachStdout: true,
		AttachStderr: true,
		Tty:          true,
	})
	if err != nil {
		return "", fmt.Errorf("exec create: %w", err)
	}

	attach, err := c.cli.ContainerExecAttach(ctx, exec.ID, container.ExecAttachOptions{Tty: true})
	if err != nil {
		return "", fmt.Errorf("exec attach: %w", err)
	}
	defer attach.Close()

	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(&buf, attach.Reader)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil && err != io.EOF {
			return buf.String(), err
		}
	case <-ctx.Done():
		return buf.String(), ctx.Err()
	case <-time.After(10 * time.Second):
		return buf.String(), fmt.Errorf("exec timed out")
	}
	return buf.String(), nil
}
