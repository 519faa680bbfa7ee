package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// errCancelled is returned when input ends before an answer is given.
var errCancelled = errors.New("cancelled by user")

// terminalPrompter asks questions on the terminal. Passwords are read
// without echo when input is a terminal.
type terminalPrompter struct {
	in  io.Reader
	r   *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	return &terminalPrompter{in: in, r: bufio.NewReader(in), out: out}
}

// Prompt prints label and returns the trimmed line typed.
func (p *terminalPrompter) Prompt(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.r.ReadString('\n')
	switch {
	case errors.Is(err, io.EOF) && line == "":
		return "", errCancelled
	case err != nil && !errors.Is(err, io.EOF):
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Password prints label and reads a secret.
func (p *terminalPrompter) Password(label string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, label)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}
	return p.Prompt(label)
}

// Confirm asks a yes/no question until it gets an answer. An empty answer
// means def.
func (p *terminalPrompter) Confirm(question string, def bool) (bool, error) {
	for {
		answer, err := p.Prompt(question)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

// Ask repeats label until the answer satisfies valid. An optional question
// accepts an empty answer.
func (p *terminalPrompter) Ask(label string, required bool, valid func(string) bool, secret bool) (string, error) {
	read := p.Prompt
	if secret {
		read = p.Password
	}
	for {
		answer, err := read(label)
		if err != nil {
			return "", err
		}
		if answer == "" && !required {
			return "", nil
		}
		if answer != "" && (valid == nil || valid(answer)) {
			return answer, nil
		}
	}
}
