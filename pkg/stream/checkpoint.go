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

package stream

import (
	"encoding/binary"
	"errors"
	"time"

	"go.etcd.io/bbolt"

	"github.com/greenlab-adc/adc-stream-node/pkg/log"
)

const checkpointBucket = "stream_checkpoint"

var checkpointKeys = struct {
	packetSequence, firstSampleIndex, dropCount string
}{"packet_sequence", "first_sample_index", "drop_count"}

// Checkpoint persists (packetSequence, firstSampleIndex, dropCount) to
// a bbolt database on a slow ticker, purely for post-crash diagnostics.
// It never sits on the per-frame send path: State.Send doesn't know
// Checkpoint exists, the orchestrator drives it from a separate
// goroutine. dropCount is not tracked here; it is read live from the
// same pipeline.DropLatch the sender and diagnostics API share, via
// State.DropCount.
type Checkpoint struct {
	db *bbolt.DB
}

// OpenCheckpoint opens (creating if necessary) a bbolt database at
// path and ensures the checkpoint bucket exists.
func OpenCheckpoint(path string) (*Checkpoint, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(checkpointBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &Checkpoint{db: db}, nil
}

// Close releases the underlying database.
func (c *Checkpoint) Close() error {
	return c.db.Close()
}

// Save writes the current counters. Intended to be called from a slow
// ticker (default 1s), not per-frame.
func (c *Checkpoint) Save(packetSequence uint32, firstSampleIndex, dropCount uint64) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(checkpointBucket))
		if b == nil {
			return errors.New("stream: checkpoint bucket missing")
		}
		if err := b.Put([]byte(checkpointKeys.packetSequence), uint32Bytes(packetSequence)); err != nil {
			return err
		}
		if err := b.Put([]byte(checkpointKeys.firstSampleIndex), uint64Bytes(firstSampleIndex)); err != nil {
			return err
		}
		return b.Put([]byte(checkpointKeys.dropCount), uint64Bytes(dropCount))
	})
}

// Load reads back the last saved counters; zero values if nothing was
// ever saved.
func (c *Checkpoint) Load() (packetSequence uint32, firstSampleIndex uint64, dropCount uint64, err error) {
	err = c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(checkpointBucket))
		if b == nil {
			return errors.New("stream: checkpoint bucket missing")
		}
		if v := b.Get([]byte(checkpointKeys.packetSequence)); v != nil {
			packetSequence = binary.BigEndian.Uint32(v)
		}
		if v := b.Get([]byte(checkpointKeys.firstSampleIndex)); v != nil {
			firstSampleIndex = binary.BigEndian.Uint64(v)
		}
		if v := b.Get([]byte(checkpointKeys.dropCount)); v != nil {
			dropCount = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	return
}

// Run saves the sender's counters every period until stop is closed.
func (c *Checkpoint) Run(stop <-chan struct{}, period time.Duration, s *State) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.Save(s.PacketSequence(), s.FirstSampleIndex(), s.DropCount()); err != nil {
				log.Warning("stream: checkpoint save failed: %s", err)
			}
		case <-stop:
			return
		}
	}
}

func uint32Bytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
