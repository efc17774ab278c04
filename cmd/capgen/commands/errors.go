package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"

	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
)

// PrintError reports a failed command on stderr as kind + message, with
// hints. With --json the UserError payload is printed instead. The full
// error chain is logged at debug level.
func PrintError(err error) {
	ue := errors.ToUserError(err)
	logger.Logger.Debugw("Command failed", logger.FieldErrorKind, ue.Kind, logger.FieldError, fmt.Sprintf("%+v", err))

	if logger.JSONOutput {
		data, _ := json.Marshal(ue)
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	printer := pterm.Error.WithWriter(os.Stderr)
	if ue.Kind == errors.KindInternal {
		// Internal errors carry no fixed message worth more than the error itself
		printer.Printfln("%v", err)
	} else {
		printer.Printfln("%s: %s", ue.Kind, ue.Message)
	}
	for _, hint := range ue.Hints {
		pterm.Info.WithWriter(os.Stderr).Printfln("hint: %s", hint)
	}
}
