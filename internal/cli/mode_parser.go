// Package cli holds command-line plumbing shared by the binaries: mode
// parsing for the client and the dev token helper.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeRegister = "register"
	ModeLogin    = "login"
	ModeMap      = "map"
	ModeLogout   = "logout"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeRegister, "reg":
		return ModeRegister, true
	case ModeLogin, "l":
		return ModeLogin, true
	case ModeMap, "m":
		return ModeMap, true
	case ModeLogout:
		return ModeLogout, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `map --allow-location`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := range args {
		arg := args[i]
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no command specified: use register | login | map | logout")
	}

	if m, ok := isKnownMode(mode); ok {
		mode = m
	}

	return mode, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage:
  ./workmap <command> [flags]

Commands:
  register    Create an account (worker or client)
  login       Authenticate and cache the session token
  map         Open the live map with presence tracking
  logout      Drop the cached session

Examples:
  ./workmap register --nombre=Ana --apellido=Diaz --dni=12345678 --email=ana@x.com --password=secret1 --tipo=trabajador
  ./workmap login --email=ana@x.com --password=secret1
  ./workmap map --allow-location`)
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./workmap %s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
