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

package calibration

import (
	"github.com/spf13/cobra"
)

const (
	ImmersedOptionName = "immersed"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibration",
		Short: "Inspect and apply calibration files",
	}
	cmd.AddCommand(NewShowCommand())
	cmd.AddCommand(NewApplyCommand())
	return cmd
}
