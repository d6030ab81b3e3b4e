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
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/spf13/cobra"

	"soest.hawaii.edu/hioos/go-storx/pkg/command"
	"soest.hawaii.edu/hioos/go-storx/pkg/config"
)

func NewPostCommand(cfg *config.Config) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "post FILE",
		Short: "Send a raw logger file to the server for decoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := ioutil.ReadFile(args[0])
			if err != nil {
				return err
			}
			if source == "" {
				source = filepath.Base(args[0])
			}
			apiClient := command.NewApiClient(cfg)
			result, err := apiClient.Decode(source, data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Decoded %d records, skipped %d frames\n", len(result.Records), len(result.Skipped))
			for _, skipped := range result.Skipped {
				fmt.Fprintf(out, "  %s\n", skipped)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&source, SourceOptionName, "", "Source name of the records, defaults to the file name")
	return cmd
}
