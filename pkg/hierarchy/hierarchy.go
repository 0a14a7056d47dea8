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

// Package hierarchy rolls numeric metrics up a tree of metric-bearing
// entities (outlet -> bank/phase -> device -> rack -> site). The tree is
// rebuilt on every poll rather than mutated in place, so no reader ever
// observes a half-updated aggregate.
package hierarchy

import "sort"

// NodeKind labels the level of a node within the grouping tree.
type NodeKind string

const (
	KindOutlet NodeKind = "outlet"
	KindBank   NodeKind = "bank"
	KindPhase  NodeKind = "phase"
	KindDevice NodeKind = "device"
	KindRack   NodeKind = "rack"
	KindSite   NodeKind = "site"
)

// Node is one entity in the grouping tree. Metrics values are pointers so
// "no data" (nil) stays distinct from a reported zero. The parent reference
// is non-owning and only used for path display.
type Node struct {
	Key      int                 `json:"key"`
	Label    string              `json:"label"`
	Kind     NodeKind            `json:"kind"`
	Children []*Node             `json:"children,omitempty"`
	Metrics  map[string]*float64 `json:"metrics,omitempty"`

	parent *Node
}

// Path returns the labels from the root down to this node.
func (n *Node) Path() []string {
	if n == nil {
		return nil
	}

	var labels []string
	for cur := n; cur != nil; cur = cur.parent {
		labels = append(labels, cur.Label)
	}

	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}

	return labels
}

// Aggregate returns a fresh tree in which every group's numeric fields equal
// the sum of its children's same-named fields. A field stays nil at a parent
// when no child reports it at all, so partial instrumentation shows as
// "no data" instead of a silent zero. Children are ordered by natural
// numeric key ascending. The input tree is never modified, so repeated calls
// on the same input yield identical output.
func Aggregate(root *Node) *Node {
	if root == nil {
		return nil
	}

	return aggregateNode(root, nil)
}

func aggregateNode(src *Node, parent *Node) *Node {
	node := &Node{
		Key:    src.Key,
		Label:  src.Label,
		Kind:   src.Kind,
		parent: parent,
	}

	if len(src.Children) == 0 {
		node.Metrics = copyMetrics(src.Metrics)
		return node
	}

	node.Children = make([]*Node, 0, len(src.Children))
	for _, child := range src.Children {
		node.Children = append(node.Children, aggregateNode(child, node))
	}

	sort.SliceStable(node.Children, func(i, j int) bool {
		return node.Children[i].Key < node.Children[j].Key
	})

	node.Metrics = sumChildMetrics(node.Children)

	return node
}

// sumChildMetrics sums each field across children, treating a missing value
// as 0 when at least one sibling reports the field.
func sumChildMetrics(children []*Node) map[string]*float64 {
	sums := make(map[string]*float64)

	for _, child := range children {
		for field, value := range child.Metrics {
			if value == nil {
				continue
			}

			if cur := sums[field]; cur == nil {
				v := *value
				sums[field] = &v
			} else {
				*cur += *value
			}
		}
	}

	if len(sums) == 0 {
		return nil
	}

	return sums
}

// Totals returns the grand totals at the root of an aggregated tree.
func Totals(root *Node) map[string]*float64 {
	if root == nil {
		return nil
	}

	return copyMetrics(root.Metrics)
}

func copyMetrics(metrics map[string]*float64) map[string]*float64 {
	if len(metrics) == 0 {
		return nil
	}

	out := make(map[string]*float64, len(metrics))

	for field, value := range metrics {
		if value == nil {
			out[field] = nil
			continue
		}

		v := *value
		out[field] = &v
	}

	return out
}
