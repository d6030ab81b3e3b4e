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

package layers

import (
	"errors"
)

var (
	// ErrIncompleteFrame means fewer bytes are available than the frame requires.
	// The caller should buffer more data and retry.
	ErrIncompleteFrame = errors.New("incomplete frame")
	// ErrChecksumMismatch means the integrity word of the frame does not match its body
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrUnknownFrameType means the vendor prefix matched but the frame id is not registered
	ErrUnknownFrameType = errors.New("unknown frame type")
	// ErrMalformedFrame means the frame is complete and intact but its content can not be interpreted
	ErrMalformedFrame = errors.New("malformed frame")
)
