package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zpools-io/zpools-cli/internal/adapters/api"
	"github.com/zpools-io/zpools-cli/internal/domain"
)

// cliError replaces the printed text of an error without hiding it from
// errors.Is and errors.As.
type cliError struct {
	text string
	err  error
}

func (e *cliError) Error() string {
	return e.text
}

func (e *cliError) Unwrap() error {
	return e.err
}

// explain turns err into what the user sees. API failures show the server's
// message on a terminal and the raw body otherwise. Timeouts and transport
// failures get a hint on how to pick the wait back up.
func explain(cmd *cobra.Command, asJSON bool, resume string, err error) error {
	if err == nil {
		return nil
	}

	text := err.Error()

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if asJSON || !isTerminal(cmd.OutOrStdout()) {
			if raw := strings.TrimSpace(apiErr.RawBody()); raw != "" {
				text = raw
			}
		} else {
			text = fmt.Sprintf("%s (HTTP %d)", apiErr.Message(), apiErr.StatusCode)
		}
	}

	if errors.Is(err, domain.ErrCredentialsMissing) {
		text += "\nSet ZPOOLPAT, or ZPOOL_USER and ZPOOL_PASSWORD, in the environment or the zpoolrc file."
	}

	if resume != "" && (errors.Is(err, domain.ErrTimeoutExceeded) || errors.Is(err, domain.ErrTransport)) {
		text += "\nResume with: " + resume
	}

	if text == err.Error() {
		return err
	}
	return &cliError{text: text, err: err}
}
