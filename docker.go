package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/pkg/errors"
)

// engineAPI is the slice of the Docker engine API the migration drives.
type engineAPI interface {
	RegistryLogin(ctx context.Context, auth registry.AuthConfig) (registry.AuthenticateOKBody, error)
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ImageTag(ctx context.Context, source, target string) error
	ImagePush(ctx context.Context, ref string, options image.PushOptions) (io.ReadCloser, error)
	ImageRemove(ctx context.Context, imageID string, options image.RemoveOptions) ([]image.DeleteResponse, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
}

type Docker struct {
	ctx context.Context
	cli engineAPI
}

func newDocker() *Docker {
	return &Docker{
		ctx: context.Background(),
	}
}

func (d *Docker) mustStartCli() *Docker {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		panic(err)
	}
	d.cli = cli
	return d
}

// login feeds credentials to the engine's registry login endpoint, the
// daemon-side equivalent of `docker login`.
func (d *Docker) login(host string, auth authorization) error {
	_, err := d.cli.RegistryLogin(d.ctx, registry.AuthConfig{
		Username:      auth.username,
		Password:      auth.password,
		ServerAddress: host,
	})
	if err != nil {
		return errors.Wrapf(err, "login to %s", host)
	}

	slog.Info("registryLogin", "registry", host, "username", auth.username)
	return nil
}

// authorize encodes credentials the way pull and push expect them in the
// X-Registry-Auth header.
func (d *Docker) authorize(auth authorization) string {
	authConfig := registry.AuthConfig{
		Username: auth.username,
		Password: auth.password,
	}

	encodedJSON, err := json.Marshal(authConfig)
	if err != nil {
		panic(err)
	}

	return base64.URLEncoding.EncodeToString(encodedJSON)
}

func (d *Docker) pull(auth string, ref string) error {
	out, err := d.cli.ImagePull(d.ctx, ref, image.PullOptions{
		RegistryAuth: auth,
	})
	if err != nil {
		return errors.Wrapf(err, "pulling %s", ref)
	}

	defer out.Close()
	io.Copy(io.Discard, out)
	slog.Info("imagePulling", "image", ref, "status", "pulled")
	return nil
}

// rename aliases an already pulled image under the destination reference, a
// local metadata operation only.
func (d *Docker) rename(from, to string) error {
	if err := d.cli.ImageTag(d.ctx, from, to); err != nil {
		return errors.Wrapf(err, "tagging %s as %s", from, to)
	}

	slog.Info("renaming", "from", from, "to", to)
	return nil
}

func (d *Docker) push(auth string, ref string) error {
	out, err := d.cli.ImagePush(d.ctx, ref, image.PushOptions{
		RegistryAuth: auth,
	})
	if err != nil {
		return errors.Wrapf(err, "pushing %s", ref)
	}

	defer out.Close()
	io.Copy(io.Discard, out)
	slog.Info("imagePushing", "image", ref, "status", "pushed")
	return nil
}

// remove deletes a local image reference unless some container, running or
// stopped, was created from it. In that case only a notice is emitted, the
// image stays.
func (d *Docker) remove(ref string) error {
	containers, err := d.cli.ContainerList(d.ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("ancestor", ref)),
	})
	if err != nil {
		return errors.Wrapf(err, "listing containers of %s", ref)
	}

	if len(containers) > 0 {
		ids := make([]string, len(containers))
		for i, c := range containers {
			ids[i] = c.ID
		}

		slog.Info("imageRemoving", "image", ref, "status", "skipped", "containers", strings.Join(ids, ","))
		return nil
	}

	if _, err := d.cli.ImageRemove(d.ctx, ref, image.RemoveOptions{}); err != nil {
		return errors.Wrapf(err, "removing %s", ref)
	}

	slog.Info("imageRemoving", "image", ref, "status", "removed")
	return nil
}
