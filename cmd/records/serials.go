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

	"github.com/spf13/cobra"

	"soest.hawaii.edu/hioos/go-storx/pkg/command"
	"soest.hawaii.edu/hioos/go-storx/pkg/config"
)

func NewSerialsCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serials",
		Short: "List the instruments with stored records",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			serials, err := apiClient.Serials()
			if err != nil {
				return err
			}
			for _, serial := range serials {
				fmt.Fprintln(cmd.OutOrStdout(), serial)
			}
			return nil
		},
	}
	return cmd
}
