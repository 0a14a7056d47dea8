/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package source

import (
	"sync"
	"time"

	"github.com/carverauto/gridview/pkg/models"
)

const defaultBufferCapacity = 4096

// Buffer retains the most recent samples of one entity, bounded by capacity.
// Samples arrive in timestamp order from the collector loops; the buffer does
// not reorder or deduplicate.
type Buffer struct {
	mu       sync.RWMutex
	samples  []models.Sample
	capacity int
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = defaultBufferCapacity
	}

	return &Buffer{capacity: capacity}
}

// Add appends a sample, evicting the oldest once capacity is reached.
func (b *Buffer) Add(sample models.Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) == b.capacity {
		copy(b.samples, b.samples[1:])
		b.samples = b.samples[:len(b.samples)-1]
	}

	b.samples = append(b.samples, sample)
}

// Window returns a copy of the samples within [start, end], inclusive.
func (b *Buffer) Window(start, end time.Time) []models.Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []models.Sample

	for _, s := range b.samples {
		if s.Timestamp.Before(start) || s.Timestamp.After(end) {
			continue
		}

		out = append(out, s)
	}

	return out
}

// Len returns the number of retained samples.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.samples)
}
