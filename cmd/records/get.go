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

package records

import (
	"github.com/spf13/cobra"

	"soest.hawaii.edu/hioos/go-storx/pkg/command"
	"soest.hawaii.edu/hioos/go-storx/pkg/config"
)

func NewGetCommand(cfg *config.Config) *cobra.Command {
	var output string
	var limit int
	cmd := &cobra.Command{
		Use:   "get SERIAL",
		Short: "Print the latest stored records of an instrument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printer, err := command.NewPrinter(cmd.OutOrStdout(), output)
			if err != nil {
				return err
			}
			apiClient := command.NewApiClient(cfg)
			records, err := apiClient.Records(args[0], limit)
			if err != nil {
				return err
			}
			for _, r := range records {
				if err := printer.Print(r); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, OutputOptionName, "o", command.OutputJSON, "Output format. "+command.HelpOutput)
	cmd.Flags().IntVar(&limit, LimitOptionName, 10, "Number of records, 0 for all")
	return cmd
}
