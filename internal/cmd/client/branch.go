package clientcmd

import "github.com/spf13/cobra"

// NewBranchCommand builds the "grace branch" command group.
func NewBranchCommand(apiURL func() string) *cobra.Command {
	branchCmd := &cobra.Command{Use: "branch", Short: "Branch operations"}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			repoID, _ := cmd.Flags().GetString("repo-id")
			parent, _ := cmd.Flags().GetString("parent")
			return postJSON(apiURL, "/v1/branches/create", map[string]interface{}{
				"branchName":     name,
				"repositoryId":   repoID,
				"parentBranchId": parent,
			})
		},
	}
	createCmd.Flags().String("name", "", "Branch name")
	createCmd.Flags().String("repo-id", "", "Repository id")
	createCmd.Flags().String("parent", "", "Parent branch id")
	branchCmd.AddCommand(createCmd)

	for _, op := range []struct {
		use, path string
	}{
		{"save", "/v1/branches/save"},
		{"checkpoint", "/v1/branches/checkpoint"},
		{"commit", "/v1/branches/commit"},
		{"promote", "/v1/branches/promote"},
		{"tag", "/v1/branches/tag"},
	} {
		op := op
		refCmd := &cobra.Command{
			Use:   op.use,
			Short: "Create a " + op.use + " reference",
			RunE: func(cmd *cobra.Command, args []string) error {
				branchID, _ := cmd.Flags().GetString("branch-id")
				dvID, _ := cmd.Flags().GetString("directory-version-id")
				sha, _ := cmd.Flags().GetString("sha256")
				message, _ := cmd.Flags().GetString("message")
				return postJSON(apiURL, op.path, map[string]interface{}{
					"branchId":           branchID,
					"directoryVersionId": dvID,
					"sha256Hash":         sha,
					"message":            message,
				})
			},
		}
		refCmd.Flags().String("branch-id", "", "Branch id")
		refCmd.Flags().String("directory-version-id", "", "Directory version id")
		refCmd.Flags().String("sha256", "", "Root directory sha256")
		refCmd.Flags().String("message", "", "Reference message")
		branchCmd.AddCommand(refCmd)
	}

	rebaseCmd := &cobra.Command{
		Use:   "rebase",
		Short: "Rebase onto a parent promotion",
		RunE: func(cmd *cobra.Command, args []string) error {
			branchID, _ := cmd.Flags().GetString("branch-id")
			refID, _ := cmd.Flags().GetString("reference-id")
			return postJSON(apiURL, "/v1/branches/rebase", map[string]interface{}{
				"branchId":    branchID,
				"referenceId": refID,
			})
		},
	}
	rebaseCmd.Flags().String("branch-id", "", "Branch id")
	rebaseCmd.Flags().String("reference-id", "", "Promotion reference id")
	branchCmd.AddCommand(rebaseCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Logically delete a branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			branchID, _ := cmd.Flags().GetString("branch-id")
			reason, _ := cmd.Flags().GetString("reason")
			force, _ := cmd.Flags().GetBool("force")
			return postJSON(apiURL, "/v1/branches/delete", map[string]interface{}{
				"branchId":     branchID,
				"deleteReason": reason,
				"force":        force,
			})
		},
	}
	deleteCmd.Flags().String("branch-id", "", "Branch id")
	deleteCmd.Flags().String("reason", "", "Delete reason")
	deleteCmd.Flags().Bool("force", false, "Delete even when references exist")
	branchCmd.AddCommand(deleteCmd)

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Get a branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			branchID, _ := cmd.Flags().GetString("branch-id")
			repoID, _ := cmd.Flags().GetString("repo-id")
			name, _ := cmd.Flags().GetString("name")
			return getJSON(apiURL, "/v1/branches/get", map[string]string{
				"branchId":     branchID,
				"repositoryId": repoID,
				"branchName":   name,
			})
		},
	}
	getCmd.Flags().String("branch-id", "", "Branch id")
	getCmd.Flags().String("repo-id", "", "Repository id")
	getCmd.Flags().String("name", "", "Branch name")
	branchCmd.AddCommand(getCmd)

	return branchCmd
}
