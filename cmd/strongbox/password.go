package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/absfs/strongbox"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errPasswordMismatch = errors.New("passwords do not match")

// readPassword reads the password from stdin when --password-stdin is set,
// otherwise prompts on the terminal. confirm asks twice.
func (a *app) readPassword(cmd *cobra.Command, confirm bool) ([]byte, error) {
	if a.passwordStdin {
		return readPasswordLine(cmd.InOrStdin())
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal; use --password-stdin")
	}

	password, err := prompt(cmd, fd, "Password: ")
	if err != nil {
		return nil, err
	}
	if !confirm {
		return password, nil
	}

	again, err := prompt(cmd, fd, "Confirm password: ")
	if err != nil {
		strongbox.Zero(password)
		return nil, err
	}
	defer strongbox.Zero(again)
	if !bytes.Equal(password, again) {
		strongbox.Zero(password)
		return nil, errPasswordMismatch
	}
	return password, nil
}

func prompt(cmd *cobra.Command, fd int, label string) ([]byte, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if len(password) == 0 {
		return nil, strongbox.ErrEmptyPassword
	}
	return password, nil
}

func readPasswordLine(r io.Reader) ([]byte, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, strongbox.ErrEmptyPassword
	}
	return []byte(line), nil
}
