/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"soest.hawaii.edu/hioos/go-storx/cmd/calibration"
	"soest.hawaii.edu/hioos/go-storx/cmd/completion"
	"soest.hawaii.edu/hioos/go-storx/cmd/config"
	"soest.hawaii.edu/hioos/go-storx/cmd/decode"
	"soest.hawaii.edu/hioos/go-storx/cmd/records"
	"soest.hawaii.edu/hioos/go-storx/cmd/serve"
	pkgconfig "soest.hawaii.edu/hioos/go-storx/pkg/config"
	"soest.hawaii.edu/hioos/go-storx/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
	ConfigOptionName   = "config"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel, configPath string
	// shared by all subcommands, filled before any of them runs
	cfg := pkgconfig.NewDefaultConfig()
	cmd := &cobra.Command{
		Use:          "go-storx",
		Short:        "Tool to decode and calibrate STOR-X logger streams",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded := pkgconfig.NewConfig(configPath)
			if err := loaded.LoadConfig(); err != nil && !os.IsNotExist(err) {
				return err
			}
			*cfg = *loaded
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			return log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(config.NewCommand(cfg))
	cmd.AddCommand(decode.NewCommand(cfg))
	cmd.AddCommand(calibration.NewCommand())
	cmd.AddCommand(serve.NewCommand(cfg))
	cmd.AddCommand(records.NewCommand(cfg))
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	cmd.PersistentFlags().StringVar(&configPath, ConfigOptionName, pkgconfig.DefaultConfigPath(), "Config file")
	return cmd
}
