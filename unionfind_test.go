/*
 * Filename: unionfind_test.go
 * Path: modisco
 */

package modisco_test

import (
	"reflect"
	"testing"

	"github.com/tanghaibao/modisco"
)

func TestDisjointSet(t *testing.T) {
	ds := modisco.NewDisjointSet(6)
	ds.Union(0, 1)
	ds.Union(3, 4)
	root := ds.Union(4, 1)
	if root != ds.Find(0) || root != ds.Find(3) {
		t.Fatalf("Union returned root %d, Find gives %d and %d", root, ds.Find(0), ds.Find(3))
	}
	if ds.Size(4) != 4 {
		t.Fatalf("Expected set size 4, got %d", ds.Size(4))
	}
	expected := [][]int{{0, 1, 3, 4}, {2}, {5}}
	if got := ds.Sets(); !reflect.DeepEqual(got, expected) {
		t.Fatalf("Expected sets %v, got %v", expected, got)
	}
	if got := ds.Members(3); !reflect.DeepEqual(got, expected[0]) {
		t.Fatalf("Expected members %v, got %v", expected[0], got)
	}
}
