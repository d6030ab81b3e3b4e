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

package srv

import (
	"fmt"
)

// ErrStoreDisabled returned when records are requested from a server without a record store
type ErrStoreDisabled struct{}

func (e ErrStoreDisabled) Error() string {
	return "record store is not configured"
}

// ErrInstrumentNotFound returned when no calibrations are configured for a serial number
type ErrInstrumentNotFound struct {
	Serial string
}

func (e ErrInstrumentNotFound) Error() string {
	return fmt.Sprintf("instrument %s not found", e.Serial)
}
