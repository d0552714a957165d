package auth

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
)

// ConsoleAuthenticator reads a password from the controlling terminal
// with echo disabled and compares it against a fixed table of
// user->password entries. This is a development/test double, not a
// production credential store — the production binding is PAM, out of
// scope per the gateway's own doc comment.
type ConsoleAuthenticator struct {
	Out        io.Writer
	Passwords  map[string]string
	readPasswd func(fd int) ([]byte, error)
}

// NewConsoleAuthenticator builds a ConsoleAuthenticator checking
// against the given user->password table.
func NewConsoleAuthenticator(passwords map[string]string) *ConsoleAuthenticator {
	return &ConsoleAuthenticator{
		Out:        os.Stderr,
		Passwords:  passwords,
		readPasswd: func(fd int) ([]byte, error) { return term.ReadPassword(fd) },
	}
}

// Authenticate prompts on Out and reads a no-echo password from stdin.
func (c *ConsoleAuthenticator) Authenticate(ctx context.Context, user string, prompt string) error {
	if prompt == "" {
		prompt = fmt.Sprintf("[rootasrole] password for %s: ", user)
	}
	fmt.Fprint(c.Out, prompt)
	entered, err := c.readPasswd(int(os.Stdin.Fd()))
	fmt.Fprintln(c.Out)
	if err != nil {
		return rarerr.Wrap(err, rarerr.AuthenticationFailed, "console.authenticate")
	}
	want, ok := c.Passwords[user]
	if !ok || want != string(entered) {
		return rarerr.ErrAuthRejected
	}
	return nil
}

// AccountMgmt is a no-op for the console double: it has no concept of
// account expiry or lockout.
func (c *ConsoleAuthenticator) AccountMgmt(ctx context.Context, user string) error {
	return nil
}
