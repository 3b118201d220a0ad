package docker

import (
	"context"
	"log/slog"
	"time"

	"github.com/docker/docker/client"
)

// Client wraps the engine API for the few queries the compose CLI cannot
// answer, currently image resolution during pre-flight.
type Client struct {
	api *client.Client
}

// NewClient connects to the engine at the given host.
func NewClient(host string) (*Client, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	} else {
		opts = append(opts, client.FromEnv)
	}

	api, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

func (c *Client) Close() error {
	return c.api.Close()
}

// ImageResolvable reports whether an image reference can be satisfied: found
// locally, or resolvable against its registry. The second return value is
// false when neither side could be consulted (registry unreachable, bad
// credentials); callers should treat that as inconclusive rather than failed.
func (c *Client) ImageResolvable(ctx context.Context, ref string) (resolvable, conclusive bool) {
	inspectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, _, err := c.api.ImageInspectWithRaw(inspectCtx, ref); err == nil {
		return true, true
	} else if client.IsErrNotFound(err) {
		// Fall through to the registry
	} else {
		slog.Debug("Local image inspect inconclusive", "image", ref, "error", err)
		return false, false
	}

	registryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := c.api.DistributionInspect(registryCtx, ref, ""); err != nil {
		if client.IsErrNotFound(err) {
			return false, true
		}
		slog.Debug("Registry image inspect inconclusive", "image", ref, "error", err)
		return false, false
	}
	return true, true
}
