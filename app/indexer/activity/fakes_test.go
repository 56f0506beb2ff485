package activity_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/fardream/go-bcs/bcs"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/checkpoint"
	indexermodels "github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/models/indexer"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/postgres"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/redis"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/source"
	"github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/walrus"
)

// fakeStore keeps one map per table and applies the upsert policies in memory.
type fakeStore struct {
	mu         sync.Mutex
	tables     map[string]map[string]indexermodels.Row
	watermarks map[string]uint64
	commits    int
	failCommit int // fail the n-th commit (1-based); 0 never fails
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables:     make(map[string]map[string]indexermodels.Row),
		watermarks: make(map[string]uint64),
	}
}

func (s *fakeStore) Commit(_ context.Context, table indexermodels.Table, policy postgres.Policy, rows []indexermodels.Row) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
	if s.failCommit == s.commits {
		return 0, errors.New("connection reset")
	}
	t, ok := s.tables[table.Name]
	if !ok {
		t = make(map[string]indexermodels.Row)
		s.tables[table.Name] = t
	}
	var n int64
	for _, r := range postgres.Dedup(rows, policy) {
		if _, exists := t[r.Key()]; exists && policy == postgres.InsertOrIgnore {
			continue
		}
		t[r.Key()] = r
		n++
	}
	return n, nil
}

func (s *fakeStore) RecordWatermark(_ context.Context, pipeline string, hi uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.watermarks[pipeline]; !ok || hi > cur {
		s.watermarks[pipeline] = hi
	}
	return nil
}

func (s *fakeStore) Watermark(_ context.Context, pipeline string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hi, ok := s.watermarks[pipeline]
	return hi, ok, nil
}

func (s *fakeStore) table(name string) map[string]indexermodels.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]indexermodels.Row, len(s.tables[name]))
	for k, v := range s.tables[name] {
		out[k] = v
	}
	return out
}

// memSource serves checkpoints from a map.
type memSource struct {
	checkpoints map[uint64]*checkpoint.Checkpoint
	latest      uint64
	fetches     atomic.Int32
}

func newMemSource(cps ...*checkpoint.Checkpoint) *memSource {
	s := &memSource{checkpoints: make(map[uint64]*checkpoint.Checkpoint)}
	for _, cp := range cps {
		s.checkpoints[cp.SequenceNumber] = cp
		if cp.SequenceNumber > s.latest {
			s.latest = cp.SequenceNumber
		}
	}
	return s
}

func (s *memSource) Checkpoint(_ context.Context, seq uint64) (*checkpoint.Checkpoint, error) {
	s.fetches.Add(1)
	cp, ok := s.checkpoints[seq]
	if !ok {
		return nil, source.ErrNotFound
	}
	return cp, nil
}

func (s *memSource) Latest(context.Context) (uint64, error) {
	return s.latest, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []redis.IndexedEvent
}

func (p *fakePublisher) PublishIndexed(_ context.Context, ev redis.IndexedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func mustAddr(s string) checkpoint.Address {
	a, err := checkpoint.ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func senderCheckpoint(seq uint64, senders ...string) *checkpoint.Checkpoint {
	cp := &checkpoint.Checkpoint{SequenceNumber: seq}
	for i, s := range senders {
		cp.Transactions = append(cp.Transactions, checkpoint.Transaction{
			Digest: string(rune('a'+i)) + "-tx",
			Sender: mustAddr(s),
		})
	}
	return cp
}

// blobObject builds a current-layout Blob whose size field carries size.
func blobObject(id string, size uint64) checkpoint.Object {
	addr := mustAddr(id)
	storage := addr
	storage[0] = 0xee
	typ := walrus.DefaultPackage + "::blob::Blob"
	tag, err := checkpoint.ParseStructTag(typ)
	if err != nil {
		panic(err)
	}
	contents, err := bcs.Marshal(walrus.BlobV2{
		ID:              addr,
		RegisteredEpoch: 3,
		Size:            size,
		EncodingType:    1,
		Storage:         walrus.StorageV2{ID: storage, StartEpoch: 3, EndEpoch: 30, StorageSize: size * 5},
	})
	if err != nil {
		panic(err)
	}
	return checkpoint.Object{ID: addr, Version: 1, RawType: typ, Type: &tag, Contents: contents}
}

func blobCheckpoint(seq uint64, objs ...checkpoint.Object) *checkpoint.Checkpoint {
	return &checkpoint.Checkpoint{
		SequenceNumber: seq,
		Transactions: []checkpoint.Transaction{{
			Digest:        "blob-tx",
			Sender:        mustAddr("0x1"),
			OutputObjects: objs,
		}},
	}
}

// counterValue sums a counter family for one pipeline label.
func counterValue(reg *prometheus.Registry, name, pipeline string) float64 {
	mfs, err := reg.Gather()
	if err != nil {
		panic(err)
	}
	var total float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "pipeline" && l.GetValue() == pipeline {
					if m.GetCounter() != nil {
						total += m.GetCounter().GetValue()
					}
					if m.GetGauge() != nil {
						total += m.GetGauge().GetValue()
					}
				}
			}
		}
	}
	return total
}
