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

package command

import (
	"encoding/json"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"
)

const (
	OutputJSON = "json"
	OutputYAML = "yaml"
	HelpOutput = "Must be one of: json, yaml."
)

// ErrOutputFormat returned for an output format other than json or yaml
type ErrOutputFormat struct {
	Format string
}

func (e ErrOutputFormat) Error() string {
	return fmt.Sprintf("Wrong output format %q. %s", e.Format, HelpOutput)
}

// Printer writes values one per line as JSON, or as a stream of yaml documents
type Printer struct {
	out    io.Writer
	format string
}

func NewPrinter(out io.Writer, format string) (*Printer, error) {
	switch format {
	case OutputJSON, OutputYAML:
	default:
		return nil, ErrOutputFormat{Format: format}
	}
	return &Printer{out: out, format: format}, nil
}

func (p *Printer) Print(v interface{}) error {
	if p.format == OutputYAML {
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.out, "---\n%s", data)
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.out, "%s\n", data)
	return err
}
