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
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soest.hawaii.edu/hioos/go-storx/pkg/codec"
	"soest.hawaii.edu/hioos/go-storx/pkg/config"
	"soest.hawaii.edu/hioos/go-storx/pkg/layers"
	"soest.hawaii.edu/hioos/go-storx/pkg/pipeline"
	"soest.hawaii.edu/hioos/go-storx/pkg/srv"
	"soest.hawaii.edu/hioos/go-storx/pkg/store"
)

const testCalibration = "analog_1 GAIN false 2 'V'\n"

func storXFrame(t *testing.T, serial string, clock uint32) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{ComputeChecksums: true}, &layers.StorXLayer{
		Header:          layers.Header{ID: layers.StorXFrameID, Serial: serial},
		Analog:          [layers.StorXAnalogChannels]uint16{50},
		InternalVoltage: 11800,
		Logger:          layers.LoggerTimestamp{Date: 2010316, Clock: clock},
	}))
	return append([]byte(nil), buf.Bytes()...)
}

// testConfig writes a calibration file next to the config and returns the config
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storx.txt"), []byte(testCalibration), 0644))
	cfg := config.NewConfig(filepath.Join(dir, "config"))
	cfg.TimeZone = "UTC"
	cfg.Instruments = []*config.InstrumentConfig{
		{Serial: "0042", Calibration: "storx.txt"},
	}
	return cfg
}

func newTestClient(t *testing.T) *ApiClient {
	t.Helper()
	cfg := testConfig(t)
	processor, err := NewProcessor(cfg)
	require.NoError(t, err)
	st, err := store.Open(cfg.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	s := srv.NewApiServer(context.Background(), "", processor, st, codec.Options{Location: time.UTC})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &ApiClient{ApiPrefix: ts.URL + "/api"}
}

func TestClientDecodeAndRecords(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)

	data := bytes.Join([][]byte{storXFrame(t, "0042", 120000000), storXFrame(t, "0042", 120100000)}, []byte("noise"))
	result, err := c.Decode("buoy", data)
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Empty(t, result.Skipped)
	v, ok := result.Records[0].Value("analog_1")
	require.True(t, ok)
	require.NotNil(t, v.Value)
	assert.Equal(t, 100.0, *v.Value)

	serials, err := c.Serials()
	require.NoError(t, err)
	assert.Equal(t, []string{"0042"}, serials)

	records, err := c.Records("0042", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Timestamp.Before(records[1].Timestamp))
	assert.Equal(t, "buoy", records[1].Source)

	records, err = c.Records("0042", 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Timestamp.Minute())

	_, err = c.Records("1234", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClientCalibrations(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)

	calibrations, err := c.Calibrations("0042")
	require.NoError(t, err)
	require.Len(t, calibrations, 1)
	assert.Equal(t, "analog_1", calibrations[0].ChannelID)
	assert.Equal(t, []float64{2}, calibrations[0].Coefficients)

	_, err = c.Calibrations("0043")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instrument 0043 not found")
}

func TestNewApiClient(t *testing.T) {
	t.Parallel()
	cfg := config.NewDefaultConfig()
	c := NewApiClient(cfg)
	assert.Equal(t, "http://127.0.0.1:8001/api", c.ApiPrefix)
	assert.Equal(t, "http://127.0.0.1:8001/api/records/00%2042?limit=5", c.recordsUrl("00 42", 5))
	assert.Equal(t, "http://127.0.0.1:8001/api/decode?source=a+b", c.decodeUrl("a b"))
}

func TestDecodeFiles(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	dir := t.TempDir()

	first := filepath.Join(dir, "first.raw")
	second := filepath.Join(dir, "second.raw")
	require.NoError(t, os.WriteFile(first, append(storXFrame(t, "0042", 0), []byte("SATABC0042xx")...), 0644))
	require.NoError(t, os.WriteFile(second, append(storXFrame(t, "0042", 1000), storXFrame(t, "0099", 2000)...), 0644))

	st, err := store.Open(cfg.DBPath)
	require.NoError(t, err)
	defer st.Close()

	var records []*pipeline.Record
	summary, err := DecodeFiles(context.Background(), cfg, []string{first, second}, st, func(r *pipeline.Record) error {
		records = append(records, r)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Records)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, records, 3)

	stored, err := st.List("0042", 0)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	stored, err = st.List("0099", 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Empty(t, stored[0].Values)
}

func TestDecodeFilesMissing(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	_, err := DecodeFiles(context.Background(), cfg, []string{filepath.Join(t.TempDir(), "missing.raw")}, nil, func(*pipeline.Record) error {
		return nil
	})
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}
