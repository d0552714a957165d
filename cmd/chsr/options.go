package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeChatP/RootAsRole-sub001/editor"
	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
)

var (
	optScope string
	optRole  string
	optTask  string
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "set an option at the global, role, or task level",
}

var optionsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "set one option key to value at the given scope",
	Args:  cobra.ExactArgs(2),
	RunE:  runOptionsSet,
}

func init() {
	optionsSetCmd.Flags().StringVar(&optScope, "scope", "global", "global, role, or task")
	optionsSetCmd.Flags().StringVarP(&optRole, "role", "r", "", "role, required for scope=role or scope=task")
	optionsSetCmd.Flags().StringVarP(&optTask, "task", "t", "", "task name, required for scope=task")
	optionsCmd.AddCommand(optionsSetCmd)
}

func runOptionsSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]

	scope, err := parseScope()
	if err != nil {
		return err
	}

	session, callers, err := openEditor()
	if err != nil {
		return err
	}
	if err := session.Begin(); err != nil {
		return err
	}
	if err := session.SetOption(callers, scope, key, parseOptionValue(key, raw)); err != nil {
		return err
	}
	if err := session.Save(); err != nil {
		return err
	}
	fmt.Printf("set %s = %s at %s scope\n", key, raw, optScope)
	return nil
}

func parseScope() (editor.Scope, error) {
	switch optScope {
	case "global":
		return editor.Scope{Level: editor.ScopeGlobal}, nil
	case "role":
		if optRole == "" {
			return editor.Scope{}, rarerr.New(rarerr.InvalidArguments, "chsr.options_set", "--role is required for scope=role")
		}
		return editor.Scope{Level: editor.ScopeRole, Role: optRole}, nil
	case "task":
		if optRole == "" {
			return editor.Scope{}, rarerr.New(rarerr.InvalidArguments, "chsr.options_set", "--role is required for scope=task")
		}
		return editor.Scope{Level: editor.ScopeTask, Role: optRole, Task: taskIDFromFlags(optTask, 0)}, nil
	default:
		return editor.Scope{}, rarerr.New(rarerr.InvalidArguments, "chsr.options_set", "--scope must be one of global, role, task")
	}
}
