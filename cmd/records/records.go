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

	"soest.hawaii.edu/hioos/go-storx/pkg/config"
)

const (
	OutputOptionName = "output"
	LimitOptionName  = "limit"
	SourceOptionName = "source"
)

// NewCommand groups the commands talking to a running API server
func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Query and feed the API server",
	}
	cmd.AddCommand(NewSerialsCommand(cfg))
	cmd.AddCommand(NewGetCommand(cfg))
	cmd.AddCommand(NewCalibrationsCommand(cfg))
	cmd.AddCommand(NewPostCommand(cfg))
	return cmd
}
