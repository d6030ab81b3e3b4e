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
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// TimestampLength is the length of the timestamp the StorX logger appends to each frame
const TimestampLength = 7

// LoggerTimestamp is the StorX representation of a point in time
// Date is a 24 bit YYYYDDD value, Clock is HHMMSSmmm
type LoggerTimestamp struct {
	Date  uint32
	Clock uint32
}

// DecodeLoggerTimestamp reads a timestamp from the first TimestampLength bytes of b
func DecodeLoggerTimestamp(b []byte) LoggerTimestamp {
	return LoggerTimestamp{
		Date:  uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]),
		Clock: binary.BigEndian.Uint32(b[3:7]),
	}
}

// NewLoggerTimestamp returns the logger representation of t in t's location
func NewLoggerTimestamp(t time.Time) LoggerTimestamp {
	date := t.Year()*1000 + t.YearDay()
	clock := t.Hour()*10000000 + t.Minute()*100000 + t.Second()*1000 + t.Nanosecond()/int(time.Millisecond)
	return LoggerTimestamp{Date: uint32(date), Clock: uint32(clock)}
}

// Serialize writes the timestamp into the first TimestampLength bytes of b
func (ts LoggerTimestamp) Serialize(b []byte) {
	b[0] = byte(ts.Date >> 16)
	b[1] = byte(ts.Date >> 8)
	b[2] = byte(ts.Date)
	binary.BigEndian.PutUint32(b[3:7], ts.Clock)
}

// Time converts the timestamp to time.Time, the logger clock runs in loc
func (ts LoggerTimestamp) Time(loc *time.Location) (time.Time, error) {
	day, err := JulianDay(int(ts.Date), loc)
	if err != nil {
		return time.Time{}, err
	}
	hh := ts.Clock / 10000000
	mm := ts.Clock / 100000 % 100
	ss := ts.Clock / 1000 % 100
	ms := ts.Clock % 1000
	if hh > 23 || mm > 59 || ss > 59 {
		return time.Time{}, fmt.Errorf("%w: invalid logger clock %09d", ErrMalformedFrame, ts.Clock)
	}
	return day.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute +
		time.Duration(ss)*time.Second + time.Duration(ms)*time.Millisecond), nil
}

func (ts LoggerTimestamp) String() string {
	return fmt.Sprintf("%07d %09d", ts.Date, ts.Clock)
}

// JulianDay returns the midnight of a YYYYDDD date in loc
func JulianDay(date int, loc *time.Location) (time.Time, error) {
	year, doy := date/1000, date%1000
	if year < 1 || doy < 1 || doy > daysIn(year) {
		return time.Time{}, fmt.Errorf("%w: invalid julian date %07d", ErrMalformedFrame, date)
	}
	return time.Date(year, time.January, 1, 0, 0, 0, 0, loc).AddDate(0, 0, doy-1), nil
}

// DecimalHours converts fractional hours since midnight to a duration rounded to the microsecond
func DecimalHours(hours float64) (time.Duration, error) {
	if math.IsNaN(hours) || hours < 0 || hours >= 24 {
		return 0, fmt.Errorf("%w: invalid decimal hours %v", ErrMalformedFrame, hours)
	}
	micros := math.Round(hours * float64(time.Hour/time.Microsecond))
	return time.Duration(micros) * time.Microsecond, nil
}

func daysIn(year int) int {
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 366
	}
	return 365
}
