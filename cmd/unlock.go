// File: cmd/unlock.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/observability"
)

// newUnlockCmd creates the `unlock` command.
func newUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Wakes the device and clears the lockscreen if possible",
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, err := buildAgent(cfg, observability.GetLogger())
			if err != nil {
				return err
			}

			st := ag.unlocker.Ensure(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%s", st.Status)
			if st.Reason != "" {
				fmt.Fprintf(cmd.OutOrStdout(), ": %s", st.Reason)
			}
			fmt.Fprintln(cmd.OutOrStdout())

			if !st.Unlocked() {
				if st.Status == schemas.UnlockNeedUserAction {
					return fmt.Errorf("user action required: %s", st.Reason)
				}
				return fmt.Errorf("unlock failed: %s", st.Reason)
			}
			return nil
		},
	}
}
