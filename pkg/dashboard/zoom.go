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

package dashboard

// ZoomWindow is an inclusive index range over the rendered series.
type ZoomWindow struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Span returns the number of samples the window covers.
func (w ZoomWindow) Span() int {
	return w.To - w.From + 1
}

// Selector tracks a pointer-drawn sub-selection over a rendered chart.
// Selection is tracked by rendered label, not raw timestamp, because labels
// are what the pointer interacts with; when two samples format to the same
// label the first match wins on commit.
type Selector struct {
	labels    []string
	selecting bool
	fromLabel string
	toLabel   string
	window    *ZoomWindow
}

// NewSelector builds a selector over the rendered labels of the full series.
func NewSelector(labels []string) *Selector {
	return &Selector{labels: labels}
}

// BeginSelection starts a drag at the given label.
func (s *Selector) BeginSelection(label string) {
	s.selecting = true
	s.fromLabel = label
	s.toLabel = label
}

// ExtendSelection moves the drag endpoint.
func (s *Selector) ExtendSelection(label string) {
	if !s.selecting {
		return
	}

	s.toLabel = label
}

// Commit maps the dragged labels back to indices and bounds the view. A
// selection whose labels are not found, or whose span covers fewer than
// three samples, is discarded and the prior window (or full range) is kept;
// single-point and two-point zooms render as degenerate charts.
func (s *Selector) Commit() (*ZoomWindow, bool) {
	if !s.selecting {
		return s.window, false
	}

	s.selecting = false

	from := indexOfLabel(s.labels, s.fromLabel)
	to := indexOfLabel(s.labels, s.toLabel)

	if from < 0 || to < 0 {
		return s.window, false
	}

	if from > to {
		from, to = to, from
	}

	// Identical or adjacent indices are a degenerate selection.
	if to-from < 2 {
		return s.window, false
	}

	s.window = &ZoomWindow{From: from, To: to}

	return s.window, true
}

// Reset clears the window, reverting to the full rendered range without
// re-querying the source.
func (s *Selector) Reset() {
	s.selecting = false
	s.window = nil
}

// Window returns the active window, or nil when the full range is visible.
func (s *Selector) Window() *ZoomWindow {
	return s.window
}

func indexOfLabel(labels []string, label string) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}

	return -1
}
