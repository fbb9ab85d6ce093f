// Package alert is the launcher's one user-visible failure channel, used only
// for the two unrecoverable cases: no installable binary, and a prior
// instance that cannot be retired. How the message is presented (native
// dialog, terminal) is the host integration's concern; this package owns the
// boundary.
package alert

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Notifier presents a blocking failure message to the user.
type Notifier interface {
	Fatal(title, message string)
}

// StderrNotifier writes the failure prominently to a writer (stderr by
// default). It is the fallback when no native dialog integration is wired.
type StderrNotifier struct {
	Out io.Writer
}

// Default returns the stderr notifier.
func Default() Notifier {
	return &StderrNotifier{Out: os.Stderr}
}

// Fatal prints the failure banner and logs it.
func (n *StderrNotifier) Fatal(title, message string) {
	out := n.Out
	if out == nil {
		out = os.Stderr
	}
	rule := strings.Repeat("=", len(title)+8)
	fmt.Fprintf(out, "\n%s\n    %s\n%s\n%s\n\n", rule, title, rule, message)
	slog.Error("fatal_user_alert", "title", title, "message", message)
}
