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

package decode

import (
	"context"

	"github.com/spf13/cobra"

	"soest.hawaii.edu/hioos/go-storx/pkg/command"
	"soest.hawaii.edu/hioos/go-storx/pkg/config"
	"soest.hawaii.edu/hioos/go-storx/pkg/log"
	"soest.hawaii.edu/hioos/go-storx/pkg/pipeline"
	"soest.hawaii.edu/hioos/go-storx/pkg/store"
)

const (
	OutputOptionName = "output"
	StoreOptionName  = "store"
)

// NewCommand decodes logger files locally, one goroutine per file
func NewCommand(cfg *config.Config) *cobra.Command {
	var output string
	var archive bool
	cmd := &cobra.Command{
		Use:   "decode FILE...",
		Short: "Decode and calibrate raw logger files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printer, err := command.NewPrinter(cmd.OutOrStdout(), output)
			if err != nil {
				return err
			}
			var st *store.Store
			if archive {
				st, err = store.Open(cfg.DBPath)
				if err != nil {
					return err
				}
				defer st.Close()
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			summary, err := command.DecodeFiles(ctx, cfg, args, st, func(r *pipeline.Record) error {
				return printer.Print(r)
			})
			log.Info("Decoded %d records, skipped %d frames", summary.Records, summary.Skipped)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, OutputOptionName, "o", command.OutputJSON, "Output format. "+command.HelpOutput)
	cmd.Flags().BoolVar(&archive, StoreOptionName, false, "Archive the records in the record store")
	return cmd
}
