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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"soest.hawaii.edu/hioos/go-storx/pkg/log"
)

// Parse reads a calibration file with one channel per line:
//
//	channelId fitType immersed coefficient_1 .. coefficient_n units
//
// units is the last field and can be single quoted. Lines starting with '#' are comments.
// Any malformed line fails the whole file.
func Parse(r io.Reader) (*Set, error) {
	set, _ := NewSet()
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c, perr := parseCompactLine(lineNum, line)
		if perr != nil {
			return nil, perr
		}
		if err := set.add(c); err != nil {
			return nil, &ParseError{Line: lineNum, ChannelID: c.ChannelID, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read calibration: %w", err)
	}
	return set, nil
}

func parseCompactLine(lineNum int, line string) (*Calibration, *ParseError) {
	rest, units, err := splitUnits(line)
	if err != nil {
		channelID := ""
		if fields := strings.Fields(line); len(fields) > 0 {
			channelID = fields[0]
		}
		return nil, malformed(lineNum, channelID, "%v", err)
	}
	fields := strings.Fields(rest)
	if len(fields) < 3 {
		return nil, malformed(lineNum, "", "want channel id, fit type, immersed flag and units, got %q", line)
	}
	channelID := fields[0]
	fitType, err := ParseFitType(fields[1])
	if err != nil {
		return nil, malformed(lineNum, channelID, "%v", err)
	}
	immersed, err := ParseImmersed(fields[2])
	if err != nil {
		return nil, malformed(lineNum, channelID, "%v", err)
	}
	coefficients, err := parseCoefficients(fields[3:])
	if err != nil {
		return nil, malformed(lineNum, channelID, "%v", err)
	}
	if !fitType.Accepts(len(coefficients)) {
		return nil, malformed(lineNum, channelID, "%s takes %s, got %d", fitType, arityString(fitType), len(coefficients))
	}
	return &Calibration{
		ChannelID:    channelID,
		Units:        units,
		FitType:      fitType,
		Coefficients: coefficients,
		Declared:     len(coefficients),
		Immersed:     immersed,
	}, nil
}

// splitUnits cuts the trailing units field, quoted units may contain spaces
func splitUnits(line string) (string, string, error) {
	if strings.HasSuffix(line, "'") {
		open := strings.LastIndex(line[:len(line)-1], "'")
		if open < 0 {
			return "", "", fmt.Errorf("unbalanced quote in %q", line)
		}
		return line[:open], line[open+1 : len(line)-1], nil
	}
	i := strings.LastIndexAny(line, " \t")
	if i < 0 {
		return "", "", fmt.Errorf("missing units in %q", line)
	}
	units := line[i+1:]
	// a bare number is a coefficient, numeric units have to be quoted
	if _, err := strconv.ParseFloat(units, 64); err == nil {
		return "", "", fmt.Errorf("missing units in %q, last field %s is a number", line, units)
	}
	return line[:i], units, nil
}

// ParseImmersed accepts true/false, yes/no, 1/0 and wet/dry
func ParseImmersed(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "1", "wet", "immersed":
		return true, nil
	case "false", "no", "0", "dry":
		return false, nil
	}
	return false, fmt.Errorf("invalid immersed flag %q", s)
}

func parseCoefficients(fields []string) ([]float64, error) {
	coefficients := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coefficient %q", f)
		}
		coefficients = append(coefficients, v)
	}
	return coefficients, nil
}

func arityString(t FitType) string {
	switch a := t.Arity(); a {
	case arityAtLeastOne:
		return "at least 1 coefficient"
	case 1:
		return "1 coefficient"
	default:
		return fmt.Sprintf("%d coefficients", a)
	}
}

// pendingSensor is an instrument file definition waiting for its coefficient lines
type pendingSensor struct {
	line  int
	lines int
	cal   *Calibration
}

// ParseInstrumentFile reads a Satlantic calibration (.cal) or telemetry definition (.tdf) file.
// Each sensor is defined by a line
//
//	TYPE ID 'UNITS' FIELDLENGTH DATATYPE COEFFLINES FITTYPE
//
// followed by COEFFLINES lines of coefficients. The channel id is TYPE_ID, or TYPE
// when ID is NONE. immersed applies to every channel of the file.
func ParseInstrumentFile(r io.Reader, immersed bool) (*Set, error) {
	set, _ := NewSet()
	var pending *pendingSensor
	finish := func() *ParseError {
		c := pending.cal
		if !c.FitType.Accepts(len(c.Coefficients)) {
			return malformed(pending.line, c.ChannelID, "%s takes %s, got %d",
				c.FitType, arityString(c.FitType), len(c.Coefficients))
		}
		c.Declared = len(c.Coefficients)
		if err := set.add(c); err != nil {
			return &ParseError{Line: pending.line, ChannelID: c.ChannelID, Err: err}
		}
		pending = nil
		return nil
	}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if isCoefficientLine(line) {
			if pending == nil {
				return nil, malformed(lineNum, "", "coefficient line without sensor definition")
			}
			coefficients, err := parseCoefficients(strings.Fields(line))
			if err != nil {
				return nil, malformed(lineNum, pending.cal.ChannelID, "%v", err)
			}
			pending.cal.Coefficients = append(pending.cal.Coefficients, coefficients...)
			pending.lines--
			if pending.lines == 0 {
				if perr := finish(); perr != nil {
					return nil, perr
				}
			}
			continue
		}
		if pending != nil {
			return nil, malformed(pending.line, pending.cal.ChannelID, "missing %d coefficient lines", pending.lines)
		}
		sensor, perr := parseSensorLine(lineNum, line, immersed)
		if perr != nil {
			return nil, perr
		}
		pending = sensor
		if pending.lines == 0 {
			if perr := finish(); perr != nil {
				return nil, perr
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read calibration: %w", err)
	}
	if pending != nil {
		return nil, malformed(pending.line, pending.cal.ChannelID, "missing %d coefficient lines", pending.lines)
	}
	return set, nil
}

func isCoefficientLine(line string) bool {
	switch c := line[0]; {
	case c >= '0' && c <= '9', c == '-', c == '+', c == '.':
		return true
	}
	return false
}

func parseSensorLine(lineNum int, line string, immersed bool) (*pendingSensor, *ParseError) {
	fields := strings.Fields(line)
	if len(fields) != 7 {
		return nil, malformed(lineNum, "", "sensor definition needs 7 fields, got %d", len(fields))
	}
	sensorType, id := fields[0], fields[1]
	channelID := sensorType + "_" + id
	if strings.EqualFold(id, "NONE") {
		channelID = sensorType
	}
	fieldLength := 0
	if !strings.EqualFold(fields[3], "V") {
		n, err := strconv.Atoi(fields[3])
		if err != nil || n < 0 {
			return nil, malformed(lineNum, channelID, "invalid field length %q", fields[3])
		}
		fieldLength = n
	}
	coeffLines, err := strconv.Atoi(fields[5])
	if err != nil || coeffLines < 0 {
		return nil, malformed(lineNum, channelID, "invalid coefficient line count %q", fields[5])
	}
	fitType, err := ParseFitType(fields[6])
	if err != nil {
		return nil, malformed(lineNum, channelID, "%v", err)
	}
	return &pendingSensor{
		line:  lineNum,
		lines: coeffLines,
		cal: &Calibration{
			ChannelID:    channelID,
			SensorType:   sensorType,
			Units:        strings.Trim(fields[2], "'"),
			FitType:      fitType,
			Coefficients: []float64{},
			Immersed:     immersed,
			FieldLength:  fieldLength,
			DataType:     fields[4],
		},
	}, nil
}

// LoadFile loads a calibration file, .cal and .tdf files are read as Satlantic
// instrument files, anything else in the one line per channel format
func LoadFile(path string, immersed bool) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var set *Set
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cal", ".tdf":
		set, err = ParseInstrumentFile(f, immersed)
	default:
		set, err = Parse(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug("Loaded %d calibrations from %s", set.Len(), path)
	return set, nil
}
