// Package docker runs a local SearXNG instance for the web search tool.
package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/nstogner/answerpipe/pkg/tools/searxng"
)

const (
	DefaultImage         = "searxng/searxng:latest"
	DefaultContainerName = "answerpipe-searxng"
	ServerPort           = "8080"
)

// settingsTemplate enables the JSON output format, which the stock image
// leaves disabled.
const settingsTemplate = `use_default_settings: true
server:
  secret_key: %q
  limiter: false
search:
  formats:
    - html
    - json
`

// Launcher starts and reuses a SearXNG container bound to 127.0.0.1.
type Launcher struct {
	cli   *client.Client
	log   *slog.Logger
	Image string
	Name  string
	// ConfigDir holds the generated settings.yml mounted at /etc/searxng.
	ConfigDir string
	// HealthTimeout bounds how long Ensure waits for the API to respond.
	HealthTimeout time.Duration
}

// New creates a Launcher from the Docker environment (DOCKER_HOST etc.).
func New(logger *slog.Logger) (*Launcher, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		cli:           cli,
		log:           logger,
		Image:         DefaultImage,
		Name:          DefaultContainerName,
		ConfigDir:     filepath.Join(os.TempDir(), DefaultContainerName),
		HealthTimeout: 60 * time.Second,
	}, nil
}

func (l *Launcher) Close() error {
	return l.cli.Close()
}

// Ensure starts the container if needed, waits until the JSON API answers,
// and returns its base URL.
func (l *Launcher) Ensure(ctx context.Context) (string, error) {
	c, err := l.cli.ContainerInspect(ctx, l.Name)
	switch {
	case client.IsErrNotFound(err):
		if err := l.create(ctx); err != nil {
			return "", err
		}
	case err != nil:
		return "", fmt.Errorf("failed to inspect container: %w", err)
	case c.State.Running:
		l.log.Debug("Reusing SearXNG container", "name", l.Name)
	default:
		l.log.Info("Starting stopped SearXNG container", "name", l.Name)
		if err := l.cli.ContainerStart(ctx, l.Name, types.ContainerStartOptions{}); err != nil {
			return "", fmt.Errorf("failed to start container: %w", err)
		}
	}

	c, err = l.cli.ContainerInspect(ctx, l.Name)
	if err != nil {
		return "", fmt.Errorf("failed to inspect container: %w", err)
	}
	port, err := hostPort(c)
	if err != nil {
		return "", err
	}

	baseURL := "http://127.0.0.1:" + port
	if err := l.waitForHealth(ctx, baseURL); err != nil {
		return "", err
	}
	return baseURL, nil
}

// Stop removes the container.
func (l *Launcher) Stop(ctx context.Context) error {
	return l.cli.ContainerRemove(ctx, l.Name, types.ContainerRemoveOptions{Force: true})
}

func (l *Launcher) create(ctx context.Context) error {
	if _, _, err := l.cli.ImageInspectWithRaw(ctx, l.Image); err != nil {
		if !client.IsErrNotFound(err) {
			return fmt.Errorf("failed to inspect image %s: %w", l.Image, err)
		}
		l.log.Info("Pulling SearXNG image", "image", l.Image)
		rc, err := l.cli.ImagePull(ctx, l.Image, types.ImagePullOptions{})
		if err != nil {
			return fmt.Errorf("failed to pull image %s: %w", l.Image, err)
		}
		_, err = io.Copy(io.Discard, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to pull image %s: %w", l.Image, err)
		}
	}

	if err := writeSettings(l.ConfigDir); err != nil {
		return err
	}

	cfg := &container.Config{
		Image: l.Image,
		ExposedPorts: nat.PortSet{
			nat.Port(ServerPort + "/tcp"): {},
		},
	}
	hostCfg := &container.HostConfig{
		Binds: []string{l.ConfigDir + ":/etc/searxng"},
		PortBindings: nat.PortMap{
			nat.Port(ServerPort + "/tcp"): []nat.PortBinding{
				{HostIP: "127.0.0.1", HostPort: "0"},
			},
		},
	}

	resp, err := l.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, l.Name)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	if err := l.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	l.log.Info("Started SearXNG container", "id", resp.ID[:12], "name", l.Name)
	return nil
}

func writeSettings(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	settings := fmt.Sprintf(settingsTemplate, uuid.New().String())
	if err := os.WriteFile(filepath.Join(dir, "settings.yml"), []byte(settings), 0o644); err != nil {
		return fmt.Errorf("writing settings.yml: %w", err)
	}
	return nil
}

func hostPort(c types.ContainerJSON) (string, error) {
	if c.NetworkSettings == nil {
		return "", fmt.Errorf("container has no network settings")
	}
	ports := c.NetworkSettings.Ports[nat.Port(ServerPort+"/tcp")]
	if len(ports) > 0 && ports[0].HostPort != "" {
		return ports[0].HostPort, nil
	}
	return "", fmt.Errorf("container running but port not mapped")
}

func (l *Launcher) waitForHealth(ctx context.Context, baseURL string) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	timeoutCtx, cancel := context.WithTimeout(ctx, l.HealthTimeout)
	defer cancel()

	sx := searxng.NewClient(baseURL, 5*time.Second, l.log)
	var lastErr error
	for {
		select {
		case <-timeoutCtx.Done():
			return fmt.Errorf("timeout waiting for SearXNG at %s: %v", baseURL, lastErr)
		case <-ticker.C:
			if lastErr = sx.Ping(timeoutCtx); lastErr == nil {
				return nil
			}
		}
	}
}
