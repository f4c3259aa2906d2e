package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/zpools-io/zpools-cli/internal/ports"
)

// RefScheme prefixes configuration values that name a pass entry instead of
// holding the secret itself.
const RefScheme = "pass://"

var ErrUnavailable = errors.New("pass command unavailable")

type runFunc func(ctx context.Context, args ...string) (stdout string, stderr string, err error)

// Store reads secrets from the pass password manager.
type Store struct {
	run runFunc
}

var _ ports.SecretReader = (*Store)(nil)

func NewStore() *Store {
	return &Store{run: runPassCommand}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stdout, stderr, err := s.run(ctx, "show", key)
	if err != nil {
		return "", formatError("get", key, err, stderr)
	}

	stdout = strings.TrimSuffix(stdout, "\n")
	stdout = strings.TrimSuffix(stdout, "\r")

	return stdout, nil
}

// Resolve returns value unchanged unless it is a pass:// reference, in which
// case the first line of the named entry is returned.
func (s *Store) Resolve(ctx context.Context, value string) (string, error) {
	if !strings.HasPrefix(value, RefScheme) {
		return value, nil
	}

	entry := strings.TrimPrefix(value, RefScheme)
	if strings.TrimSpace(entry) == "" {
		return "", fmt.Errorf("pass reference %q names no entry", value)
	}

	secret, err := s.Get(ctx, entry)
	if err != nil {
		return "", err
	}

	first, _, _ := strings.Cut(secret, "\n")
	return strings.TrimSuffix(first, "\r"), nil
}

func runPassCommand(ctx context.Context, args ...string) (string, string, error) {
	path, err := exec.LookPath("pass")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrUnavailable
		}
		return "", "", fmt.Errorf("locate pass command: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}

func formatError(op string, key string, err error, stderr string) error {
	if stderr == "" {
		return fmt.Errorf("pass %s %q: %w", op, key, err)
	}

	return fmt.Errorf("pass %s %q: %w: %s", op, key, err, stderr)
}
