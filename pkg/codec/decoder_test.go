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

package codec

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soest.hawaii.edu/hioos/go-storx/pkg/layers"
)

func serialize(t *testing.T, l gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{ComputeChecksums: true}, l))
	return append([]byte(nil), buf.Bytes()...)
}

func storXFrame(t *testing.T) []byte {
	return serialize(t, &layers.StorXLayer{
		Header:          layers.Header{ID: layers.StorXFrameID, Serial: "0042"},
		Analog:          [layers.StorXAnalogChannels]uint16{100, 200, 300, 400, 500, 600, 700},
		InternalVoltage: 1210,
		Logger:          layers.LoggerTimestamp{Date: 2010316, Clock: 161300000},
	})
}

func isusFrame(t *testing.T, id string) []byte {
	l := &layers.ISUSLayer{
		Header:      layers.Header{ID: id, Serial: "0123"},
		SampleDate:  2010317,
		SampleHours: 2.25,
		Nitrate:     12.5,
		RMSError:    0.002,
		Logger:      layers.LoggerTimestamp{Date: 2010316, Clock: 161500000},
	}
	for i := range l.Spectrum {
		l.Spectrum[i] = uint16(1000 + i)
	}
	return serialize(t, l)
}

func ctdFrame(t *testing.T) []byte {
	return serialize(t, &layers.CTDLayer{
		Header:       layers.Header{ID: layers.CTDFrameID, Serial: "5088"},
		Temperature:  24.8812,
		Conductivity: 5.31202,
		Pressure:     20.456,
		Salinity:     34.9021,
		SampleDate:   "12 Nov 2010",
		SampleClock:  "16:14:59",
		Logger:       layers.LoggerTimestamp{Date: 2010316, Clock: 161500000},
	})
}

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func testOptions(t *testing.T) Options {
	loc, err := time.LoadLocation(DefaultTimeZone)
	require.NoError(t, err)
	return Options{Location: loc}
}

func TestDecodeAllFrameTypes(t *testing.T) {
	t.Parallel()
	stx, nlb, ndb, sbe := storXFrame(t), isusFrame(t, layers.ISUSLightFrameID), isusFrame(t, layers.ISUSDarkFrameID), ctdFrame(t)
	noise := []byte("\x00\xffnoise S>")
	data := concat(noise, stx, nlb, noise, ndb, sbe, noise)

	frames, errs := Decode(data, testOptions(t))
	require.Empty(t, errs)
	require.Len(t, frames, 4)

	wantTypes := []layers.FrameType{layers.FrameTypeStorX, layers.FrameTypeISUSLight, layers.FrameTypeISUSDark, layers.FrameTypeCTD}
	wantOffsets := []int64{
		int64(len(noise)),
		int64(len(noise) + len(stx)),
		int64(2*len(noise) + len(stx) + len(nlb)),
		int64(2*len(noise) + len(stx) + len(nlb) + len(ndb)),
	}
	for i, f := range frames {
		assert.Equal(t, wantTypes[i], f.Type)
		assert.Equal(t, wantOffsets[i], f.Offset)
		assert.Equal(t, layers.FieldNames(f.Type), f.Fields.Names())
	}
	assert.Equal(t, "SATSTX0042", frames[0].Header)
	assert.Equal(t, "0042", frames[0].SerialNumber)
	assert.Equal(t, uint16(layers.TerminatorWord), frames[0].Checksum)
	assert.Equal(t, uint16(nlb[602]), frames[1].Checksum)
}

func TestDecodeTimestamps(t *testing.T) {
	t.Parallel()
	opts := testOptions(t)
	frames, errs := Decode(concat(storXFrame(t), isusFrame(t, layers.ISUSLightFrameID), ctdFrame(t)), opts)
	require.Empty(t, errs)
	require.Len(t, frames, 3)

	loggerTime := time.Date(2010, time.November, 12, 16, 13, 0, 0, opts.Location)
	assert.True(t, frames[0].Timestamp.Equal(loggerTime))
	assert.True(t, frames[0].LoggerTime.Equal(loggerTime))

	isusTime := time.Date(2010, time.November, 13, 2, 15, 0, 0, time.UTC)
	assert.True(t, frames[1].Timestamp.Equal(isusTime), frames[1].Timestamp.String())
	assert.Equal(t, opts.Location, frames[1].Timestamp.Location())

	ctdTime := time.Date(2010, time.November, 12, 16, 14, 59, 0, opts.Location)
	assert.True(t, frames[2].Timestamp.Equal(ctdTime))
}

func TestDecodeChecksumMismatch(t *testing.T) {
	t.Parallel()
	nlb := isusFrame(t, layers.ISUSLightFrameID)
	nlb[300] ^= 0x40
	stx := storXFrame(t)

	frames, errs := Decode(concat(nlb, stx), testOptions(t))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrChecksumMismatch)
	var fe *FrameError
	require.True(t, errors.As(errs[0], &fe))
	assert.Equal(t, int64(0), fe.Offset)
	assert.Equal(t, "SATNLB0123", fe.Header)

	require.Len(t, frames, 1)
	assert.Equal(t, layers.FrameTypeStorX, frames[0].Type)
	assert.Equal(t, int64(len(nlb)), frames[0].Offset)
}

func TestDecodeValidCorruptValid(t *testing.T) {
	t.Parallel()
	first := storXFrame(t)
	corrupt := isusFrame(t, layers.ISUSLightFrameID)
	corrupt[450] ^= 0x10
	last := ctdFrame(t)

	frames, errs := Decode(concat(first, corrupt, last), testOptions(t))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrChecksumMismatch)
	require.Len(t, frames, 2)
	assert.Equal(t, layers.FrameTypeStorX, frames[0].Type)
	assert.Equal(t, int64(0), frames[0].Offset)
	assert.Equal(t, layers.FrameTypeCTD, frames[1].Type)
	assert.Equal(t, int64(len(first)+len(corrupt)), frames[1].Offset)
}

func TestDecodeUnknownFrameType(t *testing.T) {
	t.Parallel()
	unknown := []byte("SATXYZ0001 some payload")
	stx := storXFrame(t)
	frames, errs := Decode(concat(unknown, stx), testOptions(t))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrUnknownFrameType)
	require.Len(t, frames, 1)
	assert.Equal(t, int64(len(unknown)), frames[0].Offset)
}

func TestDecodeMalformedCTD(t *testing.T) {
	t.Parallel()
	echo := append([]byte("SATSBE5088S>ts\r\n"), 0x1e, 0xac, 0xcc, 0x09, 0x9d, 0x3e, 0x20)
	frames, errs := Decode(concat(echo, ctdFrame(t)), testOptions(t))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrMalformedFrame)
	require.Len(t, frames, 1)
	assert.Equal(t, layers.FrameTypeCTD, frames[0].Type)
}

func TestDecodeResyncInsideDiscardedFrame(t *testing.T) {
	t.Parallel()
	// the corrupt StorX frame swallows the header of the next frame
	stx := storXFrame(t)
	broken := stx[:20]
	frames, errs := Decode(concat(broken, stx), testOptions(t))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrChecksumMismatch)
	require.Len(t, frames, 1)
	assert.Equal(t, int64(len(broken)), frames[0].Offset)
}

func TestDecodeMaxFrameSize(t *testing.T) {
	t.Parallel()
	opts := testOptions(t)
	opts.MaxFrameSize = 100
	frames, errs := Decode(concat(isusFrame(t, layers.ISUSLightFrameID), storXFrame(t)), opts)
	require.NotEmpty(t, errs)
	assert.ErrorIs(t, errs[0], ErrMalformedFrame)
	require.Len(t, frames, 1)
	assert.Equal(t, layers.FrameTypeStorX, frames[0].Type)
}

func TestDecoderStates(t *testing.T) {
	t.Parallel()
	nlb := isusFrame(t, layers.ISUSLightFrameID)
	d := NewDecoder(testOptions(t))
	assert.Equal(t, StateScanning, d.State())

	_, err := d.Write(nlb[:5])
	require.NoError(t, err)
	_, err = d.Next()
	assert.Equal(t, ErrIncompleteFrame, err)
	assert.Equal(t, StateHeaderMatched, d.State())

	_, _ = d.Write(nlb[5:300])
	_, err = d.Next()
	assert.Equal(t, ErrIncompleteFrame, err)
	assert.Equal(t, StateBodyBuffering, d.State())
	assert.Equal(t, 300, d.Buffered())

	_, _ = d.Write(nlb[300:])
	frame, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, StateValidated, d.State())
	assert.Equal(t, layers.FrameTypeISUSLight, frame.Type)
	assert.Zero(t, d.Buffered())

	bad := isusFrame(t, layers.ISUSDarkFrameID)
	bad[100]++
	_, _ = d.Write(bad)
	_, err = d.Next()
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.Equal(t, StateChecksumFailed, d.State())
	assert.Equal(t, int64(len(nlb)+1), d.Offset())

	_, err = d.Next()
	assert.Equal(t, ErrIncompleteFrame, err)
	assert.Equal(t, StateScanning, d.State())
}

func TestDecoderClose(t *testing.T) {
	t.Parallel()
	stx := storXFrame(t)
	d := NewDecoder(testOptions(t))
	n, err := d.Write(concat(stx, stx[:30]))
	require.NoError(t, err)
	assert.Equal(t, len(stx)+30, n)
	require.NoError(t, d.Close())

	_, err = d.Next()
	require.NoError(t, err)

	_, err = d.Next()
	assert.ErrorIs(t, err, ErrIncompleteFrame)
	assert.False(t, NeedMore(err))
	assert.Equal(t, StateIncomplete, d.State())
	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, int64(len(stx)), fe.Offset)

	_, err = d.Next()
	assert.Equal(t, io.EOF, err)

	n, err = d.Write([]byte("SAT"))
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestDecoderCompaction(t *testing.T) {
	t.Parallel()
	d := NewDecoder(testOptions(t))
	garbage := bytes.Repeat([]byte{0x55, 'S', 'A'}, 1000)
	for i := 0; i < 10; i++ {
		_, _ = d.Write(garbage)
		_, err := d.Next()
		assert.Equal(t, ErrIncompleteFrame, err)
		assert.LessOrEqual(t, d.Buffered(), len(layers.SyncPrefix)-1)
	}
	assert.Equal(t, int64(10*len(garbage)-2), d.Offset())

	// the retained 'SA' completes into a header
	stx := storXFrame(t)
	_, _ = d.Write(stx[2:])
	frame, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(10*len(garbage)-2), frame.Offset)
}

func TestDecodeStreamingMatchesWholeBuffer(t *testing.T) {
	t.Parallel()
	bad := storXFrame(t)
	bad[26] = 0
	data := concat([]byte("xx"), storXFrame(t), isusFrame(t, layers.ISUSDarkFrameID), bad, ctdFrame(t), []byte("SATNLB01"))
	opts := testOptions(t)

	want, wantErrs := Decode(data, opts)

	got, gotErrs, err := NewReader(iotest.OneByteReader(bytes.NewReader(data)), opts).ReadAll()
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frames mismatch (-whole +streaming):\n%s", diff)
	}
	require.Len(t, gotErrs, len(wantErrs))
	for i := range wantErrs {
		assert.Equal(t, wantErrs[i].Error(), gotErrs[i].Error())
	}
	assert.Len(t, got, 3)
	assert.Len(t, gotErrs, 2)
}

func TestReaderError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	r := io.MultiReader(bytes.NewReader(storXFrame(t)), iotest.ErrReader(boom))
	frames, _, err := NewReader(r, testOptions(t)).ReadAll()
	assert.ErrorIs(t, err, boom)
	assert.Len(t, frames, 1)
}

func TestFrameField(t *testing.T) {
	t.Parallel()
	frames, errs := Decode(isusFrame(t, layers.ISUSLightFrameID), testOptions(t))
	require.Empty(t, errs)
	require.Len(t, frames, 1)
	f, ok := frames[0].Field("Spectrum[10]")
	require.True(t, ok)
	assert.Equal(t, uint16(1010), f.Value)
}
