package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	grantUsers  []string
	grantGroups []string
)

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "create, delete, grant, or revoke roles",
}

var roleCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "create an empty role",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleCreate,
}

var roleDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "delete a role and everything it owns",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleDelete,
}

var roleGrantCmd = &cobra.Command{
	Use:   "grant NAME",
	Short: "grant actors a role",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleGrant,
}

var roleRevokeCmd = &cobra.Command{
	Use:   "revoke NAME",
	Short: "revoke actors from a role",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoleRevoke,
}

func init() {
	for _, cmd := range []*cobra.Command{roleGrantCmd, roleRevokeCmd} {
		cmd.Flags().StringArrayVarP(&grantUsers, "user", "u", nil, "user actor to grant/revoke (repeatable)")
		cmd.Flags().StringArrayVarP(&grantGroups, "group", "g", nil, "group combination to grant/revoke, &-joined (repeatable)")
	}
	roleCmd.AddCommand(roleCreateCmd, roleDeleteCmd, roleGrantCmd, roleRevokeCmd)
}

func runRoleCreate(cmd *cobra.Command, args []string) error {
	session, callers, err := openEditor()
	if err != nil {
		return err
	}
	if err := session.Begin(); err != nil {
		return err
	}
	if _, err := session.CreateRole(callers, args[0]); err != nil {
		return err
	}
	if err := session.Save(); err != nil {
		return err
	}
	fmt.Printf("created role %s\n", args[0])
	return nil
}

func runRoleDelete(cmd *cobra.Command, args []string) error {
	session, callers, err := openEditor()
	if err != nil {
		return err
	}
	if err := session.Begin(); err != nil {
		return err
	}
	if err := session.DeleteRole(callers, args[0]); err != nil {
		return err
	}
	if err := session.Save(); err != nil {
		return err
	}
	fmt.Printf("deleted role %s\n", args[0])
	return nil
}

func runRoleGrant(cmd *cobra.Command, args []string) error {
	session, callers, err := openEditor()
	if err != nil {
		return err
	}
	if err := session.Begin(); err != nil {
		return err
	}
	actors := parseActors(grantUsers, grantGroups)
	if err := session.Grant(callers, args[0], actors); err != nil {
		return err
	}
	if err := session.Save(); err != nil {
		return err
	}
	fmt.Printf("granted %d actor(s) to %s\n", len(actors), args[0])
	return nil
}

func runRoleRevoke(cmd *cobra.Command, args []string) error {
	session, callers, err := openEditor()
	if err != nil {
		return err
	}
	if err := session.Begin(); err != nil {
		return err
	}
	actors := parseActors(grantUsers, grantGroups)
	if err := session.Revoke(callers, args[0], actors); err != nil {
		return err
	}
	if err := session.Save(); err != nil {
		return err
	}
	fmt.Printf("revoked %d actor(s) from %s\n", len(actors), args[0])
	return nil
}
