package notifier

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"StockBot/internal/models"
)

// CommandRunner runs an external program and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command on the host.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Mail sends the alert through the macOS Mail application using osascript.
type Mail struct {
	Sender   string
	Receiver string
	Subject  string
	run      CommandRunner
}

// NewMail creates a Mail channel. A nil runner uses ExecRunner.
func NewMail(sender, receiver, subject string, runner CommandRunner) *Mail {
	if runner == nil {
		runner = ExecRunner
	}
	return &Mail{Sender: sender, Receiver: receiver, Subject: subject, run: runner}
}

func (m *Mail) Name() string { return "mail" }

// Notify blocks until osascript returns.
func (m *Mail) Notify(ctx context.Context, alert models.Alert) error {
	out, err := m.run(ctx, "osascript", "-e", m.Script(alert))
	if err != nil {
		if detail := strings.TrimSpace(string(out)); detail != "" {
			return fmt.Errorf("osascript failed: %w: %s", err, detail)
		}
		return fmt.Errorf("osascript failed: %w", err)
	}
	return nil
}

// Script builds the AppleScript that composes and sends the message.
func (m *Mail) Script(alert models.Alert) string {
	var b strings.Builder
	b.WriteString("tell application \"Mail\"\n")
	fmt.Fprintf(&b, "set newMessage to make new outgoing message with properties {subject:%s, content:%s, visible:false}\n",
		appleString(m.Subject), appleString(alert.Message()))
	fmt.Fprintf(&b, "set sender of newMessage to %s\n", appleString(m.Sender))
	b.WriteString("tell newMessage\n")
	fmt.Fprintf(&b, "make new to recipient at end of to recipients with properties {address:%s}\n", appleString(m.Receiver))
	b.WriteString("send\n")
	b.WriteString("end tell\n")
	b.WriteString("end tell")
	return b.String()
}

// appleString quotes s as an AppleScript string literal.
func appleString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
