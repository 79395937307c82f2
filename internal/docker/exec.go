package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// Exec runs cmd inside the named container and returns its exit code.
// stdin may be nil; stdout and stderr receive the demultiplexed streams.
func (c *Client) Exec(
	ctx context.Context,
	containerName string,
	cmd []string,
	env []string,
	stdin io.Reader,
	stdout, stderr io.Writer,
) (int, error) {
	execOpts := container.ExecOptions{
		Cmd:          cmd,
		Env:          env,
		AttachStdin:  stdin != nil,
		AttachStdout: true,
		AttachStderr: true,
	}

	execID, err := c.cli.ContainerExecCreate(ctx, containerName, execOpts)
	if err != nil {
		return -1, fmt.Errorf("create exec in %q: %w", containerName, err)
	}

	attach, err := c.cli.ContainerExecAttach(ctx, execID.ID, container.ExecAttachOptions{})
	if err != nil {
		return -1, fmt.Errorf("attach exec in %q: %w", containerName, err)
	}
	defer attach.Close()

	// Stream stdin concurrently with output so a large restore cannot
	// deadlock on a full output buffer.
	writeErr := make(chan error, 1)
	if stdin != nil {
		go func() {
			_, err := io.Copy(attach.Conn, stdin)
			if cerr := attach.CloseWrite(); err == nil {
				err = cerr
			}
			writeErr <- err
		}()
	} else {
		writeErr <- nil
	}

	if _, err := stdcopy.StdCopy(stdout, stderr, attach.Reader); err != nil {
		return -1, fmt.Errorf("read exec output: %w", err)
	}
	if err := <-writeErr; err != nil {
		return -1, fmt.Errorf("stream stdin to %q: %w", containerName, err)
	}

	inspect, err := c.cli.ContainerExecInspect(ctx, execID.ID)
	if err != nil {
		return -1, fmt.Errorf("inspect exec: %w", err)
	}
	return inspect.ExitCode, nil
}
