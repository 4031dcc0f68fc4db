// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package registry is a thin wrapper over an external skopeo-compatible
// copy/inspect binary. It does not speak the registry protocol itself and
// does not interpret transport-specific URIs (docker://, oci:, dir:) beyond
// passing them through; its only job is invoking the external tool with the
// right arguments and retrying on transport failure.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/avast/retry-go"
)

// Operator invokes an external copy/inspect tool (skopeo by default) to
// implement the four registry operations this module needs.
type Operator struct {
	// Binary is the external tool's executable name or path. Defaults to
	// "skopeo" when empty.
	Binary string

	// Attempts bounds retries on transport failure. Defaults to 5 when zero.
	Attempts uint
}

func (o *Operator) binary() string {
	if o.Binary != "" {
		return o.Binary
	}
	return "skopeo"
}

func (o *Operator) attempts() uint {
	if o.Attempts != 0 {
		return o.Attempts
	}
	return 5
}

// runError is the last observed failure of an external tool invocation.
// Transport marks whether the failure looked retryable; when retries are
// exhausted on a transport error, Exists propagates it rather than treating
// it as "image does not exist".
type runError struct {
	binary    string
	args      []string
	stderr    string
	transport bool
}

func (e *runError) Error() string {
	return fmt.Sprintf("registry: %s %s: %s", e.binary, strings.Join(e.args, " "), e.stderr)
}

// isTransportError reports whether an external tool failure looks like a
// transient transport problem worth retrying, as opposed to a hard failure
// (bad reference, auth rejection, missing image) that retrying won't fix.
func isTransportError(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range []string{
		"connection refused",
		"timeout",
		"timed out",
		"temporary failure",
		"tls handshake",
		"reset by peer",
		"no route to host",
		"i/o timeout",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (o *Operator) run(ctx context.Context, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	var last *runError

	retryErr := retry.Do(
		func() error {
			stdout.Reset()
			stderr.Reset()

			cmd := exec.CommandContext(ctx, o.binary(), args...)
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr
			cmd.Env = os.Environ()

			if err := cmd.Run(); err != nil {
				last = &runError{
					binary:    o.binary(),
					args:      args,
					stderr:    strings.TrimSpace(stderr.String()),
					transport: isTransportError(stderr.String()),
				}
				return last
			}
			return nil
		},
		retry.Attempts(o.attempts()),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(func(err error) bool {
			var re *runError
			return errors.As(err, &re) && re.transport
		}),
	)
	if retryErr != nil {
		if last != nil {
			return nil, last
		}
		return nil, retryErr
	}
	return stdout.Bytes(), nil
}

// Exists reports whether ref resolves to an image in its registry. A
// non-transport failure (no such image, auth rejection) is reported as
// false with no error; an exhausted transport failure propagates.
func (o *Operator) Exists(ctx context.Context, ref string) (bool, error) {
	_, err := o.run(ctx, "inspect", "--raw", ref)
	if err == nil {
		return true, nil
	}
	var re *runError
	if errors.As(err, &re) && !re.transport {
		return false, nil
	}
	return false, err
}

// InspectConfig retrieves ref's image config as decoded JSON.
func (o *Operator) InspectConfig(ctx context.Context, ref string) (map[string]any, error) {
	out, err := o.run(ctx, "inspect", "--config", ref)
	if err != nil {
		return nil, err
	}
	var cfg map[string]any
	if err := json.Unmarshal(out, &cfg); err != nil {
		return nil, fmt.Errorf("registry: parse config for %s: %w", ref, err)
	}
	return cfg, nil
}

// InspectManifestDigest retrieves ref's manifest digest in "algo:hex" form.
func (o *Operator) InspectManifestDigest(ctx context.Context, ref string) (string, error) {
	out, err := o.run(ctx, "inspect", "--raw", "--format", "{{.Digest}}", ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// CopyOptions controls the behavior of Copy.
type CopyOptions struct {
	RemoveSignatures bool
	// DigestFile, if non-empty, receives the destination manifest digest.
	DigestFile string
}

// Copy copies src to dest using the external tool's transport-prefixed
// reference syntax (docker://, oci:, dir:), uninterpreted.
func (o *Operator) Copy(ctx context.Context, src, dest string, opts CopyOptions) error {
	args := []string{"copy"}
	if opts.RemoveSignatures {
		args = append(args, "--remove-signatures")
	}
	if opts.DigestFile != "" {
		args = append(args, "--digestfile", opts.DigestFile)
	}
	args = append(args, src, dest)

	_, err := o.run(ctx, args...)
	return err
}
