package sink

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// Memory keeps every record in memory, keyed by point ID.
type Memory struct {
	points sync.Map // Key: point ID, Value: *bucket
}

type bucket struct {
	mu      sync.Mutex
	records []Record
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Write implements Sink. Records of a point written twice are appended.
func (m *Memory) Write(ctx context.Context, records []Record) error {
	for _, rec := range records {
		v, _ := m.points.LoadOrStore(rec.PointID, &bucket{})
		b := v.(*bucket)
		b.mu.Lock()
		b.records = append(b.records, rec)
		b.mu.Unlock()
	}
	return nil
}

// Close implements Sink.
func (m *Memory) Close(ctx context.Context) error {
	return nil
}

// Point returns the records of one point in write order.
func (m *Memory) Point(id int64) []Record {
	v, ok := m.points.Load(id)
	if !ok {
		return nil
	}
	b := v.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.records)
}

// Records returns every record ordered by point ID, then write order.
func (m *Memory) Records() []Record {
	var ids []int64
	m.points.Range(func(k, _ any) bool {
		ids = append(ids, k.(int64))
		return true
	})
	slices.SortFunc(ids, cmp.Compare[int64])

	var out []Record
	for _, id := range ids {
		out = append(out, m.Point(id)...)
	}
	return out
}

// Values returns the values recorded under label for valid points, in
// point order.
func (m *Memory) Values(label string) []any {
	var out []any
	for _, rec := range m.Records() {
		if rec.Label == label && rec.Valid {
			out = append(out, rec.Value)
		}
	}
	return out
}
