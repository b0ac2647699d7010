package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/philipp01105/pipelog/config"
)

// defaultConfigPath is read when --config is not given and the file exists
const defaultConfigPath = "pipelog.toml"

type commandContext struct {
	configFlag *string
}

// settings loads the configuration named by --config. Without the flag the
// default path is tried and defaults are used when it is missing.
func (c *commandContext) settings() (*config.Settings, string, error) {
	path := strings.TrimSpace(*c.configFlag)
	required := path != ""
	if !required {
		path = defaultConfigPath
	}
	s, err := config.FileSource{Path: path, Required: required}.Load()
	if err != nil {
		return nil, path, fmt.Errorf("load %s: %w", path, err)
	}
	return s, path, nil
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "pipelog",
		Short:         "Structured multi-sink logging pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
