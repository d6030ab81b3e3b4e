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
	"fmt"
	"strings"
	"time"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"soest.hawaii.edu/hioos/go-storx/pkg/log"
	"soest.hawaii.edu/hioos/go-storx/pkg/pipeline"
)

const (
	BucketPrefix = "records_"
	// keyTimeLayout is fixed width UTC so that keys sort chronologically
	keyTimeLayout = "2006-01-02T15:04:05.000000000Z"
	openTimeout   = time.Second
)

// ErrBucketNotFound means no record of the serial number was stored
type ErrBucketNotFound struct {
	Serial string
}

func (e ErrBucketNotFound) Error() string {
	return fmt.Sprintf("no records for serial %s", e.Serial)
}

// Store archives records in a bbolt database, one bucket per instrument serial
type Store struct {
	DB *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open record store %s: %w", path, err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func BucketName(serial string) string {
	return fmt.Sprintf("%s%s", BucketPrefix, serial)
}

// RecordKey orders records of a serial by timestamp and stream offset
func RecordKey(rec *pipeline.Record) []byte {
	return []byte(fmt.Sprintf("%s_%020d", rec.Timestamp.UTC().Format(keyTimeLayout), rec.Offset))
}

// Put stores a record in the bucket of its serial
func (s *Store) Put(rec *pipeline.Record) error {
	return s.PutAll([]*pipeline.Record{rec})
}

// PutAll stores records in a single transaction
func (s *Store) PutAll(recs []*pipeline.Record) error {
	if len(recs) == 0 {
		return nil
	}
	log.Debug("Storing %d records", len(recs))
	return s.DB.Update(func(tx *bbolt.Tx) error {
		for _, rec := range recs {
			b, err := tx.CreateBucketIfNotExists([]byte(BucketName(rec.Serial)))
			if err != nil {
				return err
			}
			recBytes, err := yaml.Marshal(rec)
			if err != nil {
				return err
			}
			if err := b.Put(RecordKey(rec), recBytes); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns the latest limit records of a serial, oldest first. limit <= 0 returns all.
func (s *Store) List(serial string, limit int) ([]*pipeline.Record, error) {
	log.Debug("Listing records: serial: %s limit: %d", serial, limit)
	var records []*pipeline.Record
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName(serial)))
		if b == nil {
			return ErrBucketNotFound{Serial: serial}
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) == limit {
				break
			}
			rec := &pipeline.Record{}
			if err := yaml.Unmarshal(v, rec); err != nil {
				log.Error("Error while unmarshalling record %s: %s", k, err)
				return err
			}
			records = append(records, rec)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Serials returns the serial numbers with stored records
func (s *Store) Serials() ([]string, error) {
	var serials []string
	err := s.DB.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			if strings.HasPrefix(string(name), BucketPrefix) {
				serials = append(serials, strings.TrimPrefix(string(name), BucketPrefix))
			}
			return nil
		})
	})
	return serials, err
}
