package plugin

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	Gt "github.com/maroda/geigerlive/types"
)

// BadgerOutput journals pulse events to BadgerDB in batches.
// It is an append-only event log for offline analysis; the engine
// never restores state from it on startup.
type BadgerOutput struct {
	MU        sync.Mutex
	DB        *badger.DB
	BatchSize int
	Buffer    []*Gt.PulseEvent
}

func NewBadgerOutput(path string, batchSize int) (*BadgerOutput, error) {
	opts := badger.DefaultOptions(path).
		WithCompression(options.ZSTD).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		slog.Error("BadgerOutput failed to open database", slog.Any("error", err))
		return nil, fmt.Errorf("database error: %w", err)
	}

	slog.Info("BadgerOutput opened",
		slog.String("path", path),
		slog.Int("batchSize", batchSize))

	return &BadgerOutput{
		DB:        db,
		BatchSize: batchSize,
		Buffer:    make([]*Gt.PulseEvent, 0, batchSize),
	}, nil
}

// PulseKey orders entries by arrival time, then by sequence number so
// two pulses in the same nanosecond never collide.
func PulseKey(p *Gt.PulseEvent) []byte {
	k := make([]byte, 16)
	binary.BigEndian.PutUint64(k[0:8], uint64(p.Timestamp.UnixNano()))
	binary.BigEndian.PutUint64(k[8:16], uint64(p.Seq))
	return k
}

func PulseEncode(p *Gt.PulseEvent) []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		slog.Error("BadgerOutput failed to encode pulse", slog.Any("error", err))
		return nil
	}
	return buf.Bytes()
}

func PulseDecode(b []byte) (*Gt.PulseEvent, error) {
	var p Gt.PulseEvent
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode error: %w", err)
	}
	return &p, nil
}

// WritePulse queues up a batch of pulses,
// when batchsize is reached, it calls the unlocked flush
// which calls WriteBatch() with the new batch
func (bo *BadgerOutput) WritePulse(pulse *Gt.PulseEvent) error {
	bo.MU.Lock()
	defer bo.MU.Unlock()

	bo.Buffer = append(bo.Buffer, pulse)
	if len(bo.Buffer) >= bo.BatchSize {
		return bo.flushLocked()
	}
	return nil
}

// WriteBatch performs the key/value creation to be stored
// and actually calls BadgerDB to write the data
func (bo *BadgerOutput) WriteBatch(pulses []*Gt.PulseEvent) error {
	wb := bo.DB.NewWriteBatch()
	defer wb.Cancel()

	for _, p := range pulses {
		k := PulseKey(p)
		v := PulseEncode(p)
		if err := wb.Set(k, v); err != nil {
			slog.Error("BadgerOutput failed to set key in batch",
				slog.Any("error", err),
				slog.Time("pulseTime", p.Timestamp),
				slog.Int64("seq", p.Seq))
			return fmt.Errorf("write batch error: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		slog.Error("BadgerOutput failed to flush batch", slog.Any("error", err))
		return fmt.Errorf("batch flush error: %w", err)
	}

	return nil
}

// Flush is the public method that blocks,
// it sends data to WriteBatch and then clears the buffer
func (bo *BadgerOutput) Flush() error {
	bo.MU.Lock()
	defer bo.MU.Unlock()
	return bo.flushLocked()
}

func (bo *BadgerOutput) flushLocked() error {
	if len(bo.Buffer) == 0 {
		return nil
	}

	err := bo.WriteBatch(bo.Buffer)
	bo.Buffer = bo.Buffer[:0] // Clear but keep capacity
	return err
}

// QueryRange returns every journaled pulse in [start, end), oldest first.
func (bo *BadgerOutput) QueryRange(start, end time.Time) ([]*Gt.PulseEvent, error) {
	lo := make([]byte, 8)
	hi := make([]byte, 8)
	binary.BigEndian.PutUint64(lo, uint64(start.UnixNano()))
	binary.BigEndian.PutUint64(hi, uint64(end.UnixNano()))

	var pulses []*Gt.PulseEvent
	err := bo.DB.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(lo); it.Valid(); it.Next() {
			item := it.Item()
			if bytes.Compare(item.Key()[:8], hi) >= 0 {
				break
			}
			err := item.Value(func(val []byte) error {
				p, err := PulseDecode(val)
				if err != nil {
					return err
				}
				pulses = append(pulses, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("range query error: %w", err)
	}

	return pulses, nil
}

// Close flushes anything still buffered and releases the database.
func (bo *BadgerOutput) Close() error {
	if err := bo.Flush(); err != nil {
		slog.Error("BadgerOutput flush on close failed", slog.Any("error", err))
	}
	return bo.DB.Close()
}

func (bo *BadgerOutput) Type() string { return "BadgerDB" }
