// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// PortProtocolTCP is the TCP transport protocol for port mappings.
	PortProtocolTCP PortProtocol = "tcp"
	// PortProtocolUDP is the UDP transport protocol for port mappings.
	PortProtocolUDP PortProtocol = "udp"

	// SELinuxLabelNone means no SELinux label is applied to volume mounts.
	SELinuxLabelNone SELinuxLabel = ""
	// SELinuxLabelShared allows sharing the volume between containers.
	SELinuxLabelShared SELinuxLabel = "z"
	// SELinuxLabelPrivate restricts the volume to a single container.
	SELinuxLabelPrivate SELinuxLabel = "Z"
)

var (
	// ErrInvalidContainerName is the sentinel wrapped by InvalidContainerNameError.
	ErrInvalidContainerName = errors.New("invalid container name")

	// ErrInvalidNetworkPort is the sentinel wrapped by InvalidNetworkPortError.
	ErrInvalidNetworkPort = errors.New("invalid network port")

	// ErrInvalidPortMapping is the sentinel wrapped by InvalidPortMappingError.
	ErrInvalidPortMapping = errors.New("invalid port mapping")

	// ErrInvalidVolumeMount is the sentinel wrapped by InvalidVolumeMountError.
	ErrInvalidVolumeMount = errors.New("invalid volume mount")
)

type (
	// ContainerName is a name assigned to a container at run time.
	// A valid name is non-empty without whitespace.
	ContainerName string

	// InvalidContainerNameError is returned when a ContainerName is malformed.
	InvalidContainerNameError struct {
		Value ContainerName
	}

	// ContainerID identifies a container (name or engine-assigned id).
	ContainerID string

	// ImageTag identifies a container image (e.g. "drun-devbox:4f1a9c2b7e3d").
	ImageTag string

	// PortProtocol is a transport protocol for port mappings.
	// The zero value ("") means "default to tcp".
	PortProtocol string

	// NetworkPort is a TCP/UDP port number. Valid ports are greater than zero.
	NetworkPort uint16

	// InvalidNetworkPortError is returned when a NetworkPort value is zero.
	InvalidNetworkPortError struct {
		Value NetworkPort
	}

	// SELinuxLabel is an SELinux volume labeling option (":z"/":Z").
	// The zero value means no label is applied.
	SELinuxLabel string

	// VolumeMount describes a host path bind-mounted into the container.
	VolumeMount struct {
		HostPath      string
		ContainerPath string
		ReadOnly      bool
		SELinux       SELinuxLabel
	}

	// InvalidVolumeMountError is returned when a VolumeMount has invalid fields.
	InvalidVolumeMountError struct {
		Value     VolumeMount
		FieldErrs []error
	}

	// PortMapping is a host-to-container port mapping.
	PortMapping struct {
		HostPort      NetworkPort
		ContainerPort NetworkPort
		Protocol      PortProtocol
	}

	// InvalidPortMappingError is returned when a PortMapping has invalid fields.
	InvalidPortMappingError struct {
		Value     PortMapping
		FieldErrs []error
	}

	// BuildOptions are options for building an image.
	BuildOptions struct {
		// ContextDir is the build context directory.
		ContextDir string
		// Dockerfile is the Dockerfile path, relative to ContextDir.
		Dockerfile string
		// Tag is the image tag.
		Tag ImageTag
		// BuildArgs are build-time variables (--build-arg).
		BuildArgs map[string]string
		// NoCache disables the engine's layer cache.
		NoCache bool
		// Stdout receives build progress output.
		Stdout io.Writer
		// Stderr receives build error output.
		Stderr io.Writer
	}

	// RunOptions are options for running a container.
	RunOptions struct {
		// Image is the image to run.
		Image ImageTag
		// Command overrides the image's default command when non-empty.
		Command []string
		// Name is the container name.
		Name ContainerName
		// User runs container processes as this account ("-u"). Empty means
		// the image's configured user.
		User string
		// WorkDir is the working directory inside the container.
		WorkDir string
		// Env are environment variables set inside the container.
		Env map[string]string
		// Volumes are bind mounts.
		Volumes []VolumeMount
		// Ports are port mappings.
		Ports []PortMapping
		// Detach runs the container in the background ("-d").
		Detach bool
		// Remove removes the container after exit ("--rm").
		Remove bool
		// Interactive keeps stdin open ("-i").
		Interactive bool
		// TTY allocates a pseudo-terminal ("-t").
		TTY bool
		// Stdin, Stdout, Stderr are the attached standard streams.
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// ExecOptions are options for executing a command in a running container.
	ExecOptions struct {
		// User runs the command as this account ("-u"). Empty means the
		// container's configured user.
		User string
		// WorkDir is the working directory for the command.
		WorkDir string
		// Env are environment variables for the command.
		Env map[string]string
		// Interactive keeps stdin open.
		Interactive bool
		// TTY allocates a pseudo-terminal.
		TTY bool
		// Stdin, Stdout, Stderr are the attached standard streams.
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// RunResult is the outcome of a container run or exec.
	RunResult struct {
		// ContainerID identifies the container, when known.
		ContainerID ContainerID
		// ExitCode is the process exit code.
		ExitCode int
		// Error is set for infrastructure failures (engine binary missing,
		// context canceled); a plain non-zero exit leaves it nil.
		Error error
	}
)

// String returns the string representation of the ContainerName.
func (n ContainerName) String() string { return string(n) }

// Validate returns an error if the ContainerName is empty or has whitespace.
func (n ContainerName) Validate() error {
	if strings.TrimSpace(string(n)) == "" || strings.ContainsAny(string(n), " \t\n") {
		return &InvalidContainerNameError{Value: n}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidContainerNameError) Error() string {
	return fmt.Sprintf("invalid container name %q: must be non-empty without whitespace", e.Value)
}

// Unwrap returns ErrInvalidContainerName for errors.Is detection.
func (e *InvalidContainerNameError) Unwrap() error { return ErrInvalidContainerName }

// String returns the string representation of the PortProtocol.
func (p PortProtocol) String() string { return string(p) }

// String returns the decimal representation of the NetworkPort.
func (p NetworkPort) String() string { return strconv.Itoa(int(p)) }

// Validate returns an error if the NetworkPort is zero.
func (p NetworkPort) Validate() error {
	if p == 0 {
		return &InvalidNetworkPortError{Value: p}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidNetworkPortError) Error() string {
	return fmt.Sprintf("invalid network port %d: must be greater than zero", e.Value)
}

// Unwrap returns ErrInvalidNetworkPort for errors.Is detection.
func (e *InvalidNetworkPortError) Unwrap() error { return ErrInvalidNetworkPort }

// Validate returns an error if either path of the VolumeMount is empty.
func (v VolumeMount) Validate() error {
	var errs []error
	if strings.TrimSpace(v.HostPath) == "" {
		errs = append(errs, fmt.Errorf("host path must be non-empty"))
	}
	if strings.TrimSpace(v.ContainerPath) == "" {
		errs = append(errs, fmt.Errorf("container path must be non-empty"))
	}
	if len(errs) > 0 {
		return &InvalidVolumeMountError{Value: v, FieldErrs: errs}
	}
	return nil
}

// String returns the mount in "host:container[:selinux][:ro]" format.
func (v VolumeMount) String() string {
	s := v.HostPath + ":" + v.ContainerPath
	if v.SELinux != "" {
		s += ":" + string(v.SELinux)
	}
	if v.ReadOnly {
		s += ":ro"
	}
	return s
}

// Error implements the error interface.
func (e *InvalidVolumeMountError) Error() string {
	return fmt.Sprintf("invalid volume mount %s:%s: %d field error(s)",
		e.Value.HostPath, e.Value.ContainerPath, len(e.FieldErrs))
}

// Unwrap returns ErrInvalidVolumeMount for errors.Is detection.
func (e *InvalidVolumeMountError) Unwrap() error { return ErrInvalidVolumeMount }

// Validate returns an error if any field of the PortMapping is invalid.
func (p PortMapping) Validate() error {
	var errs []error
	if err := p.HostPort.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := p.ContainerPort.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch p.Protocol {
	case PortProtocolTCP, PortProtocolUDP, "":
	default:
		errs = append(errs, fmt.Errorf("invalid port protocol %q (valid: tcp, udp)", p.Protocol))
	}
	if len(errs) > 0 {
		return &InvalidPortMappingError{Value: p, FieldErrs: errs}
	}
	return nil
}

// String returns the mapping in "host:container/protocol" format,
// defaulting to tcp when the protocol is empty.
func (p PortMapping) String() string {
	proto := p.Protocol
	if proto == "" {
		proto = PortProtocolTCP
	}
	return fmt.Sprintf("%d:%d/%s", p.HostPort, p.ContainerPort, proto)
}

// Error implements the error interface.
func (e *InvalidPortMappingError) Error() string {
	return fmt.Sprintf("invalid port mapping %d:%d/%s: %d field error(s)",
		e.Value.HostPort, e.Value.ContainerPort, e.Value.Protocol, len(e.FieldErrs))
}

// Unwrap returns ErrInvalidPortMapping for errors.Is detection.
func (e *InvalidPortMappingError) Unwrap() error { return ErrInvalidPortMapping }

// ParsePortMapping parses a "host:container" or "host:container/proto"
// string into a PortMapping and validates it.
func ParsePortMapping(s string) (PortMapping, error) {
	spec, proto, _ := strings.Cut(s, "/")

	hostStr, containerStr, ok := strings.Cut(spec, ":")
	if !ok {
		return PortMapping{}, fmt.Errorf("%w: %q (expected host:container)", ErrInvalidPortMapping, s)
	}

	host, err := strconv.ParseUint(hostStr, 10, 16)
	if err != nil {
		return PortMapping{}, fmt.Errorf("%w: invalid host port %q", ErrInvalidPortMapping, hostStr)
	}
	container, err := strconv.ParseUint(containerStr, 10, 16)
	if err != nil {
		return PortMapping{}, fmt.Errorf("%w: invalid container port %q", ErrInvalidPortMapping, containerStr)
	}

	pm := PortMapping{
		HostPort:      NetworkPort(host),
		ContainerPort: NetworkPort(container),
		Protocol:      PortProtocol(proto),
	}
	if err := pm.Validate(); err != nil {
		return PortMapping{}, err
	}
	return pm, nil
}

// Validate returns an error if any field of the BuildOptions is invalid.
func (o BuildOptions) Validate() error {
	if strings.TrimSpace(o.ContextDir) == "" {
		return fmt.Errorf("build context directory must be non-empty")
	}
	return nil
}

// Validate returns an error if any field of the RunOptions is invalid.
func (o RunOptions) Validate() error {
	var errs []error
	if strings.TrimSpace(string(o.Image)) == "" {
		errs = append(errs, fmt.Errorf("image must be non-empty"))
	}
	if o.Name != "" {
		if err := o.Name.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, v := range o.Volumes {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range o.Ports {
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
