/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package shuffle

import (
	"github.com/cespare/xxhash/v2"

	"github.com/numaproj/numamon/pkg/types"
)

// Shuffle routes records among workers by the hash of a key projection of their tuples.
type Shuffle struct {
	partitions int
	columns    []int
}

// NewShuffle returns a shuffle over the given number of partitions. The key of a record is the
// projection of its tuple on columns; nil columns hash the whole tuple.
func NewShuffle(partitions int, columns []int) *Shuffle {
	return &Shuffle{
		partitions: partitions,
		columns:    columns,
	}
}

// ShuffleRecords returns the mapping of partition to the records routed to it.
func (s *Shuffle) ShuffleRecords(records []types.Record) map[int][]types.Record {
	// a single partition takes everything, skip hashing
	if s.partitions == 1 {
		return map[int][]types.Record{0: records}
	}
	partitionMap := make(map[int][]types.Record)
	for _, r := range records {
		p := s.Partition(r.Tuple)
		partitionMap[p] = append(partitionMap[p], r)
	}
	return partitionMap
}

// Partition returns the partition of a tuple.
func (s *Shuffle) Partition(t types.Tuple) int {
	key := t
	if s.columns != nil {
		key = t.Project(s.columns)
	}
	return s.PartitionKey(key.Key())
}

// PartitionKey returns the partition of a raw string key.
func (s *Shuffle) PartitionKey(key string) int {
	return int(generateHash(key) % uint64(s.partitions))
}

func generateHash(key string) uint64 {
	return xxhash.Sum64String(key)
}
