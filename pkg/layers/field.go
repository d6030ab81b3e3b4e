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
	"fmt"
	"strconv"
	"strings"
)

// Field is a named raw value extracted from a frame
type Field struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Float returns the field value as float64, false if it is not numeric
func (f Field) Float() (float64, bool) {
	switch v := f.Value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int32:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func (f Field) String() string {
	switch v := f.Value.(type) {
	case []uint16:
		return fmt.Sprintf("%s=[%d values]", f.Name, len(v))
	case float32:
		return f.Name + "=" + strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return fmt.Sprintf("%s=%v", f.Name, f.Value)
}

// Fields is an ordered list of raw values
type Fields []Field

// Get returns the field with the name compared case insensitively.
// Elements of array fields are addressed as 'name[i]'.
func (fs Fields) Get(name string) (Field, bool) {
	base, index, indexed := splitIndex(name)
	for _, f := range fs {
		if !strings.EqualFold(f.Name, base) {
			continue
		}
		if !indexed {
			return f, true
		}
		values, ok := f.Value.([]uint16)
		if !ok || index < 0 || index >= len(values) {
			return Field{}, false
		}
		return Field{Name: fmt.Sprintf("%s[%d]", f.Name, index), Value: values[index]}, true
	}
	return Field{}, false
}

// Names returns the field names in order
func (fs Fields) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

func splitIndex(name string) (string, int, bool) {
	open := strings.IndexByte(name, '[')
	if open < 0 || !strings.HasSuffix(name, "]") {
		return name, 0, false
	}
	index, err := strconv.Atoi(name[open+1 : len(name)-1])
	if err != nil {
		return name, 0, false
	}
	return name[:open], index, true
}
