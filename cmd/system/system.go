package system

import "github.com/spf13/cobra"

// NewSystemCommand groups the install and maintenance commands.
func NewSystemCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "Install, migration and tooling commands",
	}

	cmd.AddCommand(NewInitCommand())
	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewGenKeysCommand())
	cmd.AddCommand(NewGenDocsCommand())

	return cmd
}
