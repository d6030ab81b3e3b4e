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
	"fmt"

	"github.com/spf13/cobra"

	"soest.hawaii.edu/hioos/go-storx/pkg/calibration"
)

func NewShowCommand() *cobra.Command {
	var immersed bool
	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "List the channels of a calibration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := calibration.LoadFile(args[0], immersed)
			if err != nil {
				return err
			}
			for _, c := range set.Calibrations() {
				units := c.Units
				if units == "" {
					units = "-"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-8s %-12s immersed=%-5t %v\n",
					c.ChannelID, c.FitType, units, c.Immersed, c.Coefficients)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&immersed, ImmersedOptionName, false, "Instrument is deployed in water")
	return cmd
}
