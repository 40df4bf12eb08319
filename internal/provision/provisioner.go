// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"crypto/sha256"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"drun-cli/internal/container"
	"drun-cli/internal/issue"
)

type (
	// Provisioner turns a sandbox project directory into a runnable image.
	Provisioner interface {
		// Provision ensures an image for the named sandbox exists, building
		// it from the project directory's Dockerfile when needed.
		Provision(ctx context.Context, name container.ContainerName, projectDir string) (*Result, error)

		// Tag returns the image tag a Provision call would produce for the
		// project directory's current Dockerfile, without building anything.
		Tag(name container.ContainerName, projectDir string) (container.ImageTag, error)
	}

	// Result describes a provisioned image.
	Result struct {
		// ImageTag is the tag of the provisioned image.
		ImageTag container.ImageTag
		// Cached reports whether an existing image was reused.
		Cached bool
	}

	// ImageProvisioner builds sandbox images through a container engine.
	ImageProvisioner struct {
		engine container.Engine
		config *Config
	}
)

var _ Provisioner = (*ImageProvisioner)(nil)

// NewImageProvisioner creates an ImageProvisioner for the given engine.
func NewImageProvisioner(engine container.Engine, opts ...Option) *ImageProvisioner {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	return &ImageProvisioner{
		engine: engine,
		config: cfg,
	}
}

// NewImageProvisionerWithConfig creates an ImageProvisioner sharing an
// existing config. Callers that keep mutating the config (rebuild flags)
// see their changes reflected on the next Provision call.
func NewImageProvisionerWithConfig(engine container.Engine, cfg *Config) *ImageProvisioner {
	return &ImageProvisioner{
		engine: engine,
		config: cfg,
	}
}

// Config returns the provisioner's resolved configuration.
func (p *ImageProvisioner) Config() *Config {
	return p.config
}

// Provision builds the sandbox image from <projectDir>/Dockerfile unless an
// image for the same Dockerfile content and build args already exists. A
// failed build is reported immediately; the image state an engine leaves
// behind after a partial build is never reused because the cache key only
// matches complete builds.
func (p *ImageProvisioner) Provision(ctx context.Context, name container.ContainerName, projectDir string) (*Result, error) {
	if err := name.Validate(); err != nil {
		return nil, err
	}
	if err := p.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provisioning config: %w", err)
	}

	dockerfilePath := filepath.Join(projectDir, DockerfileName)
	content, err := os.ReadFile(dockerfilePath)
	if err != nil {
		return nil, issue.NewContext().
			WithOperation("provision sandbox image").
			WithResource(dockerfilePath).
			WithSuggestion("run 'drun create' to scaffold the sandbox project first").
			Wrap(err).
			BuildError()
	}

	buildArgs := p.config.BuildArgs()
	tag := p.imageTag(name, content, buildArgs)

	if !p.config.ForceRebuild {
		exists, err := p.engine.ImageExists(ctx, tag)
		if err != nil {
			return nil, fmt.Errorf("checking for image %s: %w", tag, err)
		}
		if exists {
			return &Result{ImageTag: tag, Cached: true}, nil
		}
	}

	buildOpts := container.BuildOptions{
		ContextDir: projectDir,
		Dockerfile: DockerfileName,
		Tag:        tag,
		BuildArgs:  buildArgs,
		NoCache:    p.config.ForceRebuild,
		Stdout:     os.Stderr,
		Stderr:     os.Stderr,
	}
	if err := p.engine.Build(ctx, buildOpts); err != nil {
		errCtx := issue.NewContext().
			WithOperation("build sandbox image").
			WithResource(string(tag)).
			WithSuggestion("inspect the build output above for the failing step")
		if container.IsTransientError(err) {
			errCtx = errCtx.WithSuggestion("the package repository may be unreachable; check network access and run the command again")
		}
		return nil, errCtx.Wrap(err).BuildError()
	}

	return &Result{ImageTag: tag}, nil
}

// Tag computes the content-addressed tag for the project directory's
// current Dockerfile and the provisioner's build args.
func (p *ImageProvisioner) Tag(name container.ContainerName, projectDir string) (container.ImageTag, error) {
	content, err := os.ReadFile(filepath.Join(projectDir, DockerfileName))
	if err != nil {
		return "", fmt.Errorf("reading Dockerfile for %s: %w", name, err)
	}
	return p.imageTag(name, content, p.config.BuildArgs()), nil
}

// imageTag derives a content-addressed tag so that any change to the
// Dockerfile or a build arg produces a distinct image.
func (p *ImageProvisioner) imageTag(name container.ContainerName, dockerfile []byte, buildArgs map[string]string) container.ImageTag {
	h := sha256.New()
	h.Write(dockerfile)
	for _, key := range slices.Sorted(maps.Keys(buildArgs)) {
		fmt.Fprintf(h, "\x00%s=%s", key, buildArgs[key])
	}
	digest := fmt.Sprintf("%x", h.Sum(nil))[:12]

	tag := fmt.Sprintf("drun-%s:%s", name, digest)
	if p.config.TagSuffix != "" {
		tag += "-" + p.config.TagSuffix
	}
	return container.ImageTag(tag)
}
