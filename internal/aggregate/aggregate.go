// Package aggregate turns a set of pairwise comparator results into the
// similarity matrix, thresholded graph, and collusion clusters the
// orchestrator reports.
package aggregate

import (
	"math"
	"sort"

	"github.com/standardbeagle/plagscan/internal/compare"
	"github.com/standardbeagle/plagscan/internal/types"
)

// round4 rounds v to 4 decimal places, the precision the response schema
// documents for every reported similarity weight.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Matrix is the dense file-by-file weighted-score table, indexed by
// FileID.
type Matrix struct {
	Files []string    `json:"files"`
	Score [][]float64 `json:"values"`
}

// BuildMatrix assembles a symmetric similarity matrix from every pairwise
// result, diagonal entries fixed at 1.0.
func BuildMatrix(files []string, pairs []*compare.PairResult) *Matrix {
	index := make(map[string]int, len(files))
	for i, f := range files {
		index[f] = i
	}
	n := len(files)
	score := make([][]float64, n)
	for i := range score {
		score[i] = make([]float64, n)
		score[i][i] = 1.0
	}
	for _, p := range pairs {
		li, lok := index[p.LeftPath]
		ri, rok := index[p.RightPath]
		if !lok || !rok {
			continue
		}
		score[li][ri] = p.WeightedScore
		score[ri][li] = p.WeightedScore
	}
	return &Matrix{Files: files, Score: score}
}

// Edge is one graph edge above the configured threshold.
type Edge struct {
	Left  string  `json:"left"`
	Right string  `json:"right"`
	Score float64 `json:"score"`
}

// Graph is the thresholded similarity graph; nodes include every input file,
// even ones with no edge above threshold.
type Graph struct {
	Nodes []string `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

// BuildGraph keeps every file as a node and every pair scoring at or above
// threshold as an edge, weight rounded to 4 decimals and edges ordered
// lexicographically by (left, right) rather than by score.
func BuildGraph(files []string, pairs []*compare.PairResult, threshold float64) *Graph {
	var edges []Edge
	for _, p := range pairs {
		if p.WeightedScore >= threshold {
			edges = append(edges, Edge{Left: p.LeftPath, Right: p.RightPath, Score: round4(p.WeightedScore)})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Left != edges[j].Left {
			return edges[i].Left < edges[j].Left
		}
		return edges[i].Right < edges[j].Right
	})
	return &Graph{Nodes: files, Edges: edges}
}

// Cluster is a connected component of files linked at or above the cluster
// threshold, excluding singletons.
type Cluster struct {
	Files             []string `json:"files"`
	AverageSimilarity float64  `json:"average_similarity"`
}

// BuildClusters runs BFS over edges at or above threshold (defaulting to
// types.DefaultClusterThreshold) and returns every component with two or
// more members.
func BuildClusters(files []string, pairs []*compare.PairResult, threshold float64) []Cluster {
	if threshold <= 0 {
		threshold = types.DefaultClusterThreshold
	}
	adjacency := make(map[string][]string, len(files))
	for _, f := range files {
		adjacency[f] = nil
	}
	for _, p := range pairs {
		if p.WeightedScore < threshold {
			continue
		}
		adjacency[p.LeftPath] = append(adjacency[p.LeftPath], p.RightPath)
		adjacency[p.RightPath] = append(adjacency[p.RightPath], p.LeftPath)
	}

	visited := make(map[string]bool, len(files))
	var clusters []Cluster
	for _, f := range files {
		if visited[f] {
			continue
		}
		component := bfs(f, adjacency, visited)
		if len(component) >= 2 {
			sort.Strings(component)
			clusters = append(clusters, Cluster{
				Files:             component,
				AverageSimilarity: round4(averageIntraClusterScore(component, pairs, threshold)),
			})
		}
	}
	return clusters
}

// averageIntraClusterScore means the weighted score of every pair at or
// above threshold with both endpoints in members — the edges that actually
// joined the component together.
func averageIntraClusterScore(members []string, pairs []*compare.PairResult, threshold float64) float64 {
	inCluster := make(map[string]bool, len(members))
	for _, m := range members {
		inCluster[m] = true
	}
	var sum float64
	var count int
	for _, p := range pairs {
		if p.WeightedScore < threshold {
			continue
		}
		if !inCluster[p.LeftPath] || !inCluster[p.RightPath] {
			continue
		}
		sum += p.WeightedScore
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func bfs(start string, adjacency map[string][]string, visited map[string]bool) []string {
	queue := []string{start}
	visited[start] = true
	var component []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		component = append(component, node)
		for _, neighbor := range adjacency[node] {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}
	return component
}
