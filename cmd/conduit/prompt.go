package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var stdin = bufio.NewReader(os.Stdin)

// readLine prompts for a single line of input.
func readLine(label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := stdin.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword prompts with masked input, falling back to a plain read when
// stdin is not a terminal.
func readPassword(label string) (string, error) {
	fmt.Printf("%s: ", label)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		line, err := stdin.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	fmt.Println()
	return string(pw), nil
}

// stdinConfirmer asks y/N questions on the terminal. assumeYes skips the
// question entirely.
type stdinConfirmer struct {
	assumeYes bool
}

func (c stdinConfirmer) Confirm(prompt string) bool {
	if c.assumeYes {
		return true
	}
	for {
		fmt.Printf("%s [y/N]: ", prompt)
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return false
		}

		switch strings.TrimSpace(strings.ToLower(line)) {
		case "y", "yes":
			return true
		case "n", "no", "":
			return false
		default:
			fmt.Println("Please enter 'y' or 'n'.")
		}
	}
}
