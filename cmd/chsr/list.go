package main

import (
	"fmt"

	"github.com/spf13/cobra"

	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
	"github.com/LeChatP/RootAsRole-sub001/policy"
	"github.com/LeChatP/RootAsRole-sub001/storage"
)

var (
	listRole string
	listTask string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list roles, tasks, or actors",
}

var listRolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "list every role name in the document",
	RunE:  runListRoles,
}

var listTasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "list a role's tasks",
	RunE:  runListTasks,
}

var listActorsCmd = &cobra.Command{
	Use:   "actors",
	Short: "list a role's granted actors",
	RunE:  runListActors,
}

func init() {
	listTasksCmd.Flags().StringVarP(&listRole, "role", "r", "", "role to list tasks for")
	listActorsCmd.Flags().StringVarP(&listRole, "role", "r", "", "role to list actors for")
	listActorsCmd.Flags().StringVarP(&listTask, "task", "t", "", "restrict to a task, for validation only")
	listCmd.AddCommand(listRolesCmd, listTasksCmd, listActorsCmd)
}

func loadForReading() (*policy.Config, error) {
	backend := storage.NewBackend()
	desc := policy.StorageDescriptor{Method: policy.StorageJSON, Path: flagPolicyPath}
	return backend.Load(desc)
}

func runListRoles(cmd *cobra.Command, args []string) error {
	cfg, err := loadForReading()
	if err != nil {
		return err
	}
	for _, name := range cfg.RoleNames() {
		fmt.Println(name)
	}
	return nil
}

func runListTasks(cmd *cobra.Command, args []string) error {
	cfg, err := loadForReading()
	if err != nil {
		return err
	}
	role := cfg.RoleByName(listRole)
	if role == nil {
		return rarerr.Wrap(rarerr.ErrRoleNotFound, rarerr.ConfigurationError, "chsr.list_tasks")
	}
	for _, summary := range role.TaskSummaries() {
		if summary.Purpose != "" {
			fmt.Printf("%s\t%s\n", summary.String(), summary.Purpose)
			continue
		}
		fmt.Println(summary.String())
	}
	return nil
}

func runListActors(cmd *cobra.Command, args []string) error {
	cfg, err := loadForReading()
	if err != nil {
		return err
	}
	actors, err := cfg.Actors(listRole, listTask)
	if err != nil {
		return err
	}
	for _, a := range actors {
		fmt.Println(a.String())
	}
	return nil
}
