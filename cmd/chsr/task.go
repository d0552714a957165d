package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/LeChatP/RootAsRole-sub001/policy"
)

func taskIDLabel(id policy.TaskID) string {
	if id.Positional {
		return "#" + strconv.Itoa(id.Index)
	}
	return id.Name
}

var (
	taskRole      string
	taskName      string
	taskIndex     int
	taskPurpose   string
	taskDefaultAll bool
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "add or delete tasks within a role",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "add a task to a role",
	RunE:  runTaskAdd,
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "delete a task from a role",
	RunE:  runTaskDelete,
}

func init() {
	for _, cmd := range []*cobra.Command{taskAddCmd, taskDeleteCmd} {
		cmd.Flags().StringVarP(&taskRole, "role", "r", "", "owning role")
		cmd.Flags().StringVarP(&taskName, "name", "n", "", "task name (omit for a positional task)")
		cmd.Flags().IntVar(&taskIndex, "index", 0, "positional index, used when --name is omitted")
	}
	taskAddCmd.Flags().StringVar(&taskPurpose, "purpose", "", "human-readable purpose")
	taskAddCmd.Flags().BoolVar(&taskDefaultAll, "default-all", false, "start the task's command list from the full deny-list-carved universe instead of an empty allow-list")
	taskCmd.AddCommand(taskAddCmd, taskDeleteCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	session, callers, err := openEditor()
	if err != nil {
		return err
	}
	if err := session.Begin(); err != nil {
		return err
	}
	commandDefault := policy.DefaultNone
	if taskDefaultAll {
		commandDefault = policy.DefaultAll
	}
	task := &policy.Task{
		ID:       taskIDFromFlags(taskName, taskIndex),
		Purpose:  taskPurpose,
		Commands: policy.Commands{Default: commandDefault},
	}
	if err := session.AddTask(callers, taskRole, task); err != nil {
		return err
	}
	if err := session.Save(); err != nil {
		return err
	}
	fmt.Printf("added task %s to role %s\n", taskIDLabel(task.ID), taskRole)
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	session, callers, err := openEditor()
	if err != nil {
		return err
	}
	if err := session.Begin(); err != nil {
		return err
	}
	id := taskIDFromFlags(taskName, taskIndex)
	if err := session.DeleteTask(callers, taskRole, id); err != nil {
		return err
	}
	if err := session.Save(); err != nil {
		return err
	}
	fmt.Printf("deleted task %s from role %s\n", taskIDLabel(id), taskRole)
	return nil
}
