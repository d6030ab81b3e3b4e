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

package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"soest.hawaii.edu/hioos/go-storx/pkg/calibration"
	"soest.hawaii.edu/hioos/go-storx/pkg/codec"
	"soest.hawaii.edu/hioos/go-storx/pkg/log"
	"soest.hawaii.edu/hioos/go-storx/pkg/pipeline"
)

type ApiConfig struct {
	Address string `yaml:"address,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// InstrumentConfig binds an instrument serial number to its calibration file
type InstrumentConfig struct {
	Serial string `yaml:"serial"`
	// Calibration is a file path, relative paths are resolved against the config directory
	Calibration string `yaml:"calibration"`
	Immersed    bool   `yaml:"immersed"`
	// IntegrationTime is the sensor integration time OPTIC3 channels are scaled by
	IntegrationTime float64 `yaml:"integrationTime,omitempty"`
}

type Config struct {
	LogLevel     string              `yaml:"logLevel,omitempty"`
	TimeZone     string              `yaml:"timeZone,omitempty"`
	MaxFrameSize int                 `yaml:"maxFrameSize,omitempty"`
	DBPath       string              `yaml:"dbPath,omitempty"`
	Api          *ApiConfig          `yaml:"api,omitempty"`
	Instruments  []*InstrumentConfig `yaml:"instruments"`
	filepath     string
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func NewDefaultConfig() *Config {
	return NewConfig(DefaultConfigPath())
}

// NewConfig returns the default configuration stored at path
func NewConfig(path string) *Config {
	return &Config{
		LogLevel:     DefaultLogLevel,
		TimeZone:     DefaultTimeZone,
		MaxFrameSize: DefaultMaxFrameSize,
		DBPath:       filepath.Join(filepath.Dir(path), DBFile),
		Api: &ApiConfig{
			Address: DefaultApiAddress,
			Port:    DefaultApiPort,
		},
		Instruments: []*InstrumentConfig{},
		filepath:    path,
	}
}

// Load reads the config file at path over the defaults
func Load(path string) (*Config, error) {
	c := NewConfig(path)
	if err := c.LoadConfig(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(c.filepath, data, 0644)
}

func (c *Config) LoadConfig() error {
	data, err := ioutil.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", c.filepath, err)
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := log.ParseLevel(c.LogLevel); err != nil {
			return ErrInvalidConfig{What: err.Error()}
		}
	}
	if _, err := c.Location(); err != nil {
		return ErrInvalidConfig{What: err.Error()}
	}
	if c.MaxFrameSize < 0 {
		return ErrInvalidConfig{What: fmt.Sprintf("negative max frame size %d", c.MaxFrameSize)}
	}
	seen := map[string]bool{}
	for _, inst := range c.Instruments {
		if inst.Serial == "" {
			return ErrInvalidConfig{What: "instrument without serial"}
		}
		if seen[inst.Serial] {
			return ErrInvalidConfig{What: fmt.Sprintf("duplicate instrument %s", inst.Serial)}
		}
		seen[inst.Serial] = true
	}
	return nil
}

// Location returns the reporting time zone
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return codec.DefaultLocation(), nil
	}
	return time.LoadLocation(c.TimeZone)
}

func (c *Config) DecoderOptions() (codec.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return codec.Options{}, err
	}
	return codec.Options{
		MaxFrameSize: c.MaxFrameSize,
		Location:     loc,
	}, nil
}

// ApiAddress returns host:port of the API server
func (c *Config) ApiAddress() string {
	api := c.Api
	if api == nil {
		api = &ApiConfig{}
	}
	address, port := api.Address, api.Port
	if address == "" {
		address = DefaultApiAddress
	}
	if port == 0 {
		port = DefaultApiPort
	}
	return fmt.Sprintf("%s:%d", address, port)
}

func (c *Config) GetInstrument(serial string) (*InstrumentConfig, bool) {
	for _, inst := range c.Instruments {
		if inst.Serial == serial {
			return inst, true
		}
	}
	return nil, false
}

// CalibrationPath resolves the calibration file of an instrument
func (c *Config) CalibrationPath(inst *InstrumentConfig) string {
	if inst.Calibration == "" || filepath.IsAbs(inst.Calibration) {
		return inst.Calibration
	}
	return filepath.Join(filepath.Dir(c.filepath), inst.Calibration)
}

// LoadInstruments loads the calibration set of every configured instrument.
// Instruments without a calibration file get an empty set.
func (c *Config) LoadInstruments() (map[string]pipeline.Instrument, error) {
	instruments := make(map[string]pipeline.Instrument, len(c.Instruments))
	for _, inst := range c.Instruments {
		set, _ := calibration.NewSet()
		if path := c.CalibrationPath(inst); path != "" {
			var err error
			set, err = calibration.LoadFile(path, inst.Immersed)
			if err != nil {
				return nil, fmt.Errorf("instrument %s: %w", inst.Serial, err)
			}
		}
		instruments[inst.Serial] = pipeline.Instrument{
			Serial:          inst.Serial,
			Set:             set,
			Immersed:        inst.Immersed,
			IntegrationTime: inst.IntegrationTime,
		}
	}
	return instruments, nil
}
