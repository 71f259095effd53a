package project

// Snapshot is the full state of the remote collection: id to record, with
// the order the store delivered the documents in.
type Snapshot struct {
	order []string
	docs  map[string]Record
}

func NewSnapshot() *Snapshot {
	return &Snapshot{docs: make(map[string]Record)}
}

// Put stores rec under id. A repeated id keeps its first position.
func (s *Snapshot) Put(id string, rec Record) {
	if _, ok := s.docs[id]; !ok {
		s.order = append(s.order, id)
	}
	s.docs[id] = rec
}

func (s *Snapshot) Get(id string) (Record, bool) {
	if s == nil {
		return nil, false
	}
	rec, ok := s.docs[id]
	return rec, ok
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Records returns the documents in delivery order.
func (s *Snapshot) Records() []Record {
	if s == nil {
		return nil
	}
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id])
	}
	return out
}

// Merge overlays the remote snapshot onto the static records.
//
// Static records keep their order. A remote record whose id matches a static
// one replaces it with a shallow union where every remote key wins, empty
// values included; static keys the remote record does not carry survive.
// Remote-only records are appended in snapshot order. Neither input is
// modified.
func Merge(static []Record, remote *Snapshot) []Record {
	merged := make([]Record, 0, len(static)+remote.Len())
	index := make(map[string]int, len(static))
	for _, rec := range static {
		merged = append(merged, rec.Clone())
		id := rec.ID()
		if _, seen := index[id]; !seen {
			index[id] = len(merged) - 1
		}
	}

	for _, rec := range remote.Records() {
		id := rec.ID()
		if i, ok := index[id]; ok {
			union := merged[i]
			for k, v := range rec {
				union[k] = v
			}
			continue
		}
		merged = append(merged, rec.Clone())
		index[id] = len(merged) - 1
	}
	return merged
}
