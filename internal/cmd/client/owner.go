package clientcmd

import "github.com/spf13/cobra"

// NewOwnerCommand builds the "grace owner" command group.
func NewOwnerCommand(apiURL func() string) *cobra.Command {
	ownerCmd := &cobra.Command{Use: "owner", Short: "Owner operations"}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			ownerType, _ := cmd.Flags().GetString("type")
			desc, _ := cmd.Flags().GetString("description")
			return postJSON(apiURL, "/v1/owners/create", map[string]interface{}{
				"ownerName":   name,
				"ownerType":   ownerType,
				"description": desc,
			})
		},
	}
	createCmd.Flags().String("name", "", "Owner name")
	createCmd.Flags().String("type", "User", "Owner type")
	createCmd.Flags().String("description", "", "Description")
	ownerCmd.AddCommand(createCmd)

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Get an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			id, _ := cmd.Flags().GetString("id")
			return getJSON(apiURL, "/v1/owners/get", map[string]string{
				"ownerName": name,
				"ownerId":   id,
			})
		},
	}
	getCmd.Flags().String("name", "", "Owner name")
	getCmd.Flags().String("id", "", "Owner id")
	ownerCmd.AddCommand(getCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Logically delete an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			id, _ := cmd.Flags().GetString("id")
			reason, _ := cmd.Flags().GetString("reason")
			force, _ := cmd.Flags().GetBool("force")
			return postJSON(apiURL, "/v1/owners/delete", map[string]interface{}{
				"ownerName":    name,
				"ownerId":      id,
				"deleteReason": reason,
				"force":        force,
			})
		},
	}
	deleteCmd.Flags().String("name", "", "Owner name")
	deleteCmd.Flags().String("id", "", "Owner id")
	deleteCmd.Flags().String("reason", "", "Delete reason")
	deleteCmd.Flags().Bool("force", false, "Delete even when children exist")
	ownerCmd.AddCommand(deleteCmd)

	undeleteCmd := &cobra.Command{
		Use:   "undelete",
		Short: "Undo a logical delete",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			id, _ := cmd.Flags().GetString("id")
			return postJSON(apiURL, "/v1/owners/undelete", map[string]interface{}{
				"ownerName": name,
				"ownerId":   id,
			})
		},
	}
	undeleteCmd.Flags().String("name", "", "Owner name")
	undeleteCmd.Flags().String("id", "", "Owner id")
	ownerCmd.AddCommand(undeleteCmd)

	return ownerCmd
}
