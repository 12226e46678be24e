// File: cmd/scene.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/droidpilot/internal/observability"
)

// newSceneCmd creates the `scene` command: capture and print the current UI
// state, mainly for debugging perception.
func newSceneCmd() *cobra.Command {
	var screenshotPath string

	sceneCmd := &cobra.Command{
		Use:   "scene",
		Short: "Captures the device's current scene and prints the element tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			ag, err := buildAgent(cfg, logger)
			if err != nil {
				return err
			}

			scene, err := ag.perceiver.Capture(cmd.Context())
			if err != nil {
				return fmt.Errorf("capture scene: %w", err)
			}

			if screenshotPath != "" {
				if err := os.WriteFile(screenshotPath, scene.Screenshot, 0o644); err != nil {
					return fmt.Errorf("write screenshot: %w", err)
				}
			}

			out, err := yaml.Marshal(struct {
				Package  string `yaml:"package"`
				Activity string `yaml:"activity,omitempty"`
				Elements any    `yaml:"elements"`
			}{scene.Package, scene.Activity, scene.Elements})
			if err != nil {
				return fmt.Errorf("encode scene: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	sceneCmd.Flags().StringVarP(&screenshotPath, "screenshot", "s", "", "also write the captured screenshot (JPEG) to this path")
	return sceneCmd
}
