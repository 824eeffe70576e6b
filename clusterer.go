/*
 * Filename: clusterer.go
 * Path: modisco
 */

package modisco

import "gonum.org/v1/gonum/mat"

// Clusterer partitions the rows of an affinity matrix. The set of
// implementations is closed: LouvainCluster, CollectComponents and
// HDBScanCluster.
type Clusterer interface {
	Cluster(aff *mat.Dense) (ClusterResults, error)
	clusterer()
}

var (
	_ Clusterer = (*LouvainCluster)(nil)
	_ Clusterer = (*CollectComponents)(nil)
	_ Clusterer = (*HDBScanCluster)(nil)
)
