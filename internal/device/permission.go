package device

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"workmap/internal/session"
)

// TerminalPrompt asks for location permission on the terminal, standing
// in for the platform permission dialog.
type TerminalPrompt struct {
	In  *bufio.Reader
	Out io.Writer
}

func NewTerminalPrompt(in io.Reader, out io.Writer) *TerminalPrompt {
	return &TerminalPrompt{In: bufio.NewReader(in), Out: out}
}

// Request issues one prompt. "y" grants, anything else denies; "never"
// maps to blocked, which only the settings screen can undo.
func (p *TerminalPrompt) Request(ctx context.Context) (session.Decision, error) {
	fmt.Fprint(p.Out, "The map needs access to your precise location. Allow? [y/n/never]: ")
	answer, err := p.readLine(ctx)
	if err != nil {
		return session.DecisionDenied, err
	}
	switch answer {
	case "y", "yes":
		return session.DecisionGranted, nil
	case "never":
		return session.DecisionBlocked, nil
	default:
		return session.DecisionDenied, nil
	}
}

// OfferSettings shows the "open settings" path after a denial. It never
// re-requests the permission.
func (p *TerminalPrompt) OfferSettings(ctx context.Context) error {
	fmt.Fprint(p.Out, "Location access is denied. Open system settings to change it? [y/n]: ")
	answer, err := p.readLine(ctx)
	if err != nil {
		return err
	}
	if answer == "y" || answer == "yes" {
		fmt.Fprintln(p.Out, "-> Settings > Privacy > Location > workmap")
	}
	return nil
}

func (p *TerminalPrompt) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.In.ReadString('\n')
		ch <- result{line: line, err: err}
	}()
	select {
	case r := <-ch:
		if r.err != nil && r.line == "" {
			return "", r.err
		}
		return strings.ToLower(strings.TrimSpace(r.line)), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// StaticPermission answers every request with a fixed decision; used by
// the --allow-location flag and by tests.
type StaticPermission struct {
	Decision session.Decision
}

func (s StaticPermission) Request(ctx context.Context) (session.Decision, error) {
	return s.Decision, nil
}

func (s StaticPermission) OfferSettings(ctx context.Context) error {
	return nil
}
