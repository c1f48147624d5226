package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

var errAborted = errors.New("aborted")

// stdinReader serves prompts when stdin is piped
var stdinReader = bufio.NewReader(os.Stdin)

// promptLine asks for one line of input
func promptLine(label string) (string, error) {
	if !isTerminal(os.Stdin) {
		return readPiped()
	}

	line := liner.NewLiner()
	defer func() { _ = line.Close() }()
	line.SetCtrlCAborts(true)

	input, err := line.Prompt(label)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", errAborted
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// promptPassword reads a password without echo
func promptPassword(label string) (string, error) {
	if !isTerminal(os.Stdin) {
		return readPiped()
	}

	fmt.Fprint(os.Stderr, label)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

// confirm asks a yes/no question; anything but y/yes is no
func confirm(question string) (bool, error) {
	answer, err := promptLine(question + " [y/N] ")
	if err != nil {
		if errors.Is(err, errAborted) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func readPiped() (string, error) {
	s, err := stdinReader.ReadString('\n')
	if err != nil && s == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}
