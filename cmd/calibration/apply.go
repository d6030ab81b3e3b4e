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
	"strconv"

	"github.com/spf13/cobra"

	"soest.hawaii.edu/hioos/go-storx/pkg/calibration"
)

const (
	IntegrationTimeOptionName = "integration-time"
)

func NewApplyCommand() *cobra.Command {
	var immersed bool
	var integrationTime float64
	cmd := &cobra.Command{
		Use:   "apply FILE CHANNEL RAW",
		Short: "Convert a raw value of a channel to engineering units",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := calibration.LoadFile(args[0], immersed)
			if err != nil {
				return err
			}
			c, ok := set.Get(args[1])
			if !ok {
				return fmt.Errorf("channel %s not found in %s", args[1], args[0])
			}
			raw, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("raw value %q: %w", args[2], err)
			}
			result, err := calibration.ApplySample(calibration.Sample{
				Raw:             raw,
				Immersed:        immersed || c.Immersed,
				IntegrationTime: integrationTime,
			}, c)
			if err != nil {
				return err
			}
			if result.Uncalibrated {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %g %s (uncalibrated)\n", result.ChannelID, result.Value, result.Units)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %.9g %s\n", result.ChannelID, result.Value, result.Units)
			return nil
		},
	}
	cmd.Flags().BoolVar(&immersed, ImmersedOptionName, false, "Instrument is deployed in water")
	cmd.Flags().Float64Var(&integrationTime, IntegrationTimeOptionName, 0, "Integration time of the sample, used by OPTIC3 channels")
	return cmd
}
