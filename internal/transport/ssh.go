package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrToolMissing is returned when a required external program is not
	// installed.
	ErrToolMissing = errors.New("transread: required program not found")

	// ErrConnect matches every *ConnectError.
	ErrConnect = errors.New("transread: cannot connect")

	// ErrRemoteUnreadable is returned when the remote path is not a
	// readable regular file.
	ErrRemoteUnreadable = errors.New("transread: remote file cannot be read")
)

// ConnectError reports a failed SSH connectivity probe.
type ConnectError struct {
	Host     string
	ExitCode int
	Reason   string
	Stderr   string
	Err      error
}

func (e *ConnectError) Error() string {
	msg := fmt.Sprintf("transread: cannot connect to %q: %s (error code %d)", e.Host, e.Reason, e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrConnect.
func (e *ConnectError) Is(target error) bool {
	return target == ErrConnect
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// DecodeExitCode turns an sshpass or ssh exit code into a reason.
func DecodeExitCode(code int) string {
	switch code {
	case 1:
		return "invalid command line argument"
	case 2:
		return "conflicting arguments given"
	case 3:
		return "general run-time error"
	case 4:
		return "unrecognized response from ssh (parse error)"
	case 5:
		return "invalid/incorrect password"
	case 6:
		return "host public key is unknown, sshpass exits without confirming the new key"
	case 255:
		return "ssh error"
	default:
		return "unknown"
	}
}

// sshCommand builds the ssh invocation for u, prefixed with sshpass when u
// carries a password.
func (r *Resolver) sshCommand(u *url.URL) (Command, string, error) {
	if _, err := r.runner.LookPath("ssh"); err != nil {
		return Command{}, "", fmt.Errorf("%w: \"ssh\" is required for ssh:// URLs: %w", ErrToolMissing, err)
	}

	host := u.Hostname()
	if u.User != nil && u.User.Username() != "" {
		host = u.User.Username() + "@" + host
	}

	var cmd Command
	password, hasPassword := "", false
	if u.User != nil {
		password, hasPassword = u.User.Password()
	}
	if hasPassword {
		if _, err := r.runner.LookPath("sshpass"); err != nil {
			return Command{}, "", fmt.Errorf("%w: \"sshpass\" is required for password SSH authentication: %w", ErrToolMissing, err)
		}
		cmd = Command{
			Name: "sshpass",
			Args: []string{"-e", "ssh",
				"-o", "StrictHostKeyChecking=no",
				"-o", "PubkeyAuthentication=no",
				"-o", "PasswordAuthentication=yes",
			},
			Env: []string{"SSHPASS=" + password},
		}
	} else {
		cmd = Command{
			Name: "ssh",
			Args: []string{
				"-o", "StrictHostKeyChecking=no",
				"-o", "PubkeyAuthentication=yes",
				"-o", "PasswordAuthentication=no",
				"-o", "BatchMode=yes",
			},
		}
	}
	if port := u.Port(); port != "" {
		cmd.Args = append(cmd.Args, "-p", port)
	}
	cmd.Args = append(cmd.Args, host)
	return cmd, host, nil
}

func (r *Resolver) openSSH(ctx context.Context, u *url.URL) (*Source, error) {
	base, host, err := r.sshCommand(u)
	if err != nil {
		return nil, err
	}
	path := u.Path

	log := r.logger.With(zap.String("host", host), zap.String("path", path))

	log.Debug("probing ssh connectivity")
	code, stderr, err := r.runner.Run(ctx, base.With("true"))
	if err != nil || code != 0 {
		return nil, &ConnectError{
			Host:     host,
			ExitCode: code,
			Reason:   DecodeExitCode(code),
			Stderr:   strings.TrimSpace(string(stderr)),
			Err:      err,
		}
	}

	quoted := shellQuote(path)
	code, _, err = r.runner.Run(ctx, base.With("test -f "+quoted+" && test -r "+quoted))
	if err != nil || code != 0 {
		return nil, fmt.Errorf("%w: %q on %q: make sure it exists, is a regular file, and you have read permissions (error code %d)",
			ErrRemoteUnreadable, path, host, code)
	}

	stdout, wait, err := r.runner.Start(base.With("cat " + quoted))
	if err != nil {
		return nil, fmt.Errorf("%w: %q on %q: starting cat: %w", ErrRemoteOpen, path, host, err)
	}
	log.Debug("streaming remote file")

	return &Source{
		Body:              stdout,
		Remote:            true,
		ForceEmulatedSeek: true,
		Wait:              wait,
		Size:              -1,
	}, nil
}

// shellQuote quotes s for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
