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

package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soest.hawaii.edu/hioos/go-storx/pkg/pipeline"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(serial string, ts time.Time, offset int64) *pipeline.Record {
	value := 12.5
	return &pipeline.Record{
		Source:    "logger",
		Serial:    serial,
		Header:    "SATNLB" + serial,
		Type:      "ISUSLight",
		Offset:    offset,
		Timestamp: ts,
		Values: []pipeline.ChannelValue{
			{Channel: "nitrate", Raw: 10, Value: &value, Units: "uM"},
			{Channel: "aux1", Raw: 1, Error: "calibrate aux1 (POLYF, 2 coefficients): invalid immersion state"},
		},
	}
}

func TestPutList(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	base := time.Date(2010, time.November, 12, 16, 13, 0, 0, time.UTC)

	// stored out of order
	require.NoError(t, s.Put(testRecord("0123", base.Add(2*time.Minute), 1220)))
	require.NoError(t, s.PutAll([]*pipeline.Record{
		testRecord("0123", base, 0),
		testRecord("0123", base.Add(time.Minute), 610),
		testRecord("0042", base, 0),
	}))

	all, err := s.List("0123", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{0, 610, 1220}, []int64{all[0].Offset, all[1].Offset, all[2].Offset})
	assert.True(t, all[0].Timestamp.Equal(base))

	latest, err := s.List("0123", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, int64(610), latest[0].Offset)
	assert.Equal(t, int64(1220), latest[1].Offset)

	rec := latest[1]
	require.Len(t, rec.Values, 2)
	require.NotNil(t, rec.Values[0].Value)
	assert.Equal(t, 12.5, *rec.Values[0].Value)
	assert.Nil(t, rec.Values[1].Value)
	assert.Contains(t, rec.Values[1].Error, "immersion")

	serials, err := s.Serials()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"0042", "0123"}, serials)
}

func TestListMissingSerial(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	_, err := s.List("9999", 10)
	var nf ErrBucketNotFound
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "9999", nf.Serial)
}

func TestRecordKeyOrder(t *testing.T) {
	t.Parallel()
	honolulu := time.FixedZone("HST", -10*3600)
	early := testRecord("0123", time.Date(2010, time.November, 12, 23, 0, 0, 0, honolulu), 5)
	late := testRecord("0123", time.Date(2010, time.November, 13, 1, 0, 0, 0, time.UTC).Add(12*time.Hour), 4)
	assert.Less(t, string(RecordKey(early)), string(RecordKey(late)))
	assert.Equal(t, "2010-11-13T09:00:00.000000000Z_00000000000000000005", string(RecordKey(early)))
}

func TestPutAllEmpty(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	require.NoError(t, s.PutAll(nil))
	serials, err := s.Serials()
	require.NoError(t, err)
	assert.Empty(t, serials)
}
