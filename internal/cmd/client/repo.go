package clientcmd

import "github.com/spf13/cobra"

// NewRepoCommand builds the "grace repo" command group.
func NewRepoCommand(apiURL func() string) *cobra.Command {
	repoCmd := &cobra.Command{Use: "repo", Short: "Repository operations"}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			owner, _ := cmd.Flags().GetString("owner")
			org, _ := cmd.Flags().GetString("org")
			visibility, _ := cmd.Flags().GetString("visibility")
			return postJSON(apiURL, "/v1/repositories/create", map[string]interface{}{
				"repositoryName":       name,
				"ownerName":            owner,
				"organizationName":     org,
				"repositoryVisibility": visibility,
			})
		},
	}
	createCmd.Flags().String("name", "", "Repository name")
	createCmd.Flags().String("owner", "", "Owner name")
	createCmd.Flags().String("org", "", "Organization name")
	createCmd.Flags().String("visibility", "Private", "Repository visibility")
	repoCmd.AddCommand(createCmd)

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Get a repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			id, _ := cmd.Flags().GetString("id")
			owner, _ := cmd.Flags().GetString("owner")
			org, _ := cmd.Flags().GetString("org")
			return getJSON(apiURL, "/v1/repositories/get", map[string]string{
				"repositoryName":   name,
				"repositoryId":     id,
				"ownerName":        owner,
				"organizationName": org,
			})
		},
	}
	getCmd.Flags().String("name", "", "Repository name")
	getCmd.Flags().String("id", "", "Repository id")
	getCmd.Flags().String("owner", "", "Owner name")
	getCmd.Flags().String("org", "", "Organization name")
	repoCmd.AddCommand(getCmd)

	retentionCmd := &cobra.Command{
		Use:   "set-retention",
		Short: "Set one retention window in days",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			window, _ := cmd.Flags().GetString("window")
			days, _ := cmd.Flags().GetFloat64("days")
			return postJSON(apiURL, "/v1/repositories/set-retention-days", map[string]interface{}{
				"repositoryId":    id,
				"retentionWindow": window,
				"retentionDays":   days,
			})
		},
	}
	retentionCmd.Flags().String("id", "", "Repository id")
	retentionCmd.Flags().String("window", "save", "Window: save|checkpoint|diff-cache|directory-version-cache|logical-delete")
	retentionCmd.Flags().Float64("days", 7, "Days")
	repoCmd.AddCommand(retentionCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Logically delete a repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			id, _ := cmd.Flags().GetString("id")
			owner, _ := cmd.Flags().GetString("owner")
			org, _ := cmd.Flags().GetString("org")
			reason, _ := cmd.Flags().GetString("reason")
			force, _ := cmd.Flags().GetBool("force")
			return postJSON(apiURL, "/v1/repositories/delete", map[string]interface{}{
				"repositoryName":   name,
				"repositoryId":     id,
				"ownerName":        owner,
				"organizationName": org,
				"deleteReason":     reason,
				"force":            force,
			})
		},
	}
	deleteCmd.Flags().String("name", "", "Repository name")
	deleteCmd.Flags().String("id", "", "Repository id")
	deleteCmd.Flags().String("owner", "", "Owner name")
	deleteCmd.Flags().String("org", "", "Organization name")
	deleteCmd.Flags().String("reason", "", "Delete reason")
	deleteCmd.Flags().Bool("force", false, "Delete even when branches exist")
	repoCmd.AddCommand(deleteCmd)

	return repoCmd
}
