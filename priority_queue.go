/*
 * Filename: priority_queue.go
 * Path: modisco
 */

package modisco

import "container/heap"

// merge is a candidate join of items a < b
type merge struct {
	a     int
	b     int
	score float64
	index int
}

// A PriorityQueue implements heap.Interface and holds candidate merges.
type PriorityQueue []*merge

// Len returns the number of merges in the queue
func (pq PriorityQueue) Len() int { return len(pq) }

// Less pops the highest score first, ties by (a, b)
func (pq PriorityQueue) Less(i, j int) bool {
	if pq[i].score != pq[j].score {
		return pq[i].score > pq[j].score
	}
	if pq[i].a != pq[j].a {
		return pq[i].a < pq[j].a
	}
	return pq[i].b < pq[j].b
}

// Swap exchanges values of two elements
func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

// Push adds an element to the queue
func (pq *PriorityQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*merge)
	item.index = n
	*pq = append(*pq, item)
}

// Pop removes the element at the end
func (pq *PriorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	item.index = -1 // for safety
	*pq = old[0 : n-1]
	return item
}

// newMergeQueue builds a heap over the merges
func newMergeQueue(merges []*merge) *PriorityQueue {
	pq := make(PriorityQueue, len(merges))
	for i, m := range merges {
		m.index = i
		pq[i] = m
	}
	heap.Init(&pq)
	return &pq
}
