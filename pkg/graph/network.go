package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// NetworkService reads relationship neighborhoods back from the projection
type NetworkService struct {
	client *Client
	logger ectologger.Logger
}

// NewNetworkService creates a new network query service
func NewNetworkService(client *Client, logger ectologger.Logger) *NetworkService {
	return &NetworkService{
		client: client,
		logger: logger,
	}
}

// Network is an entity's relationship neighborhood
type Network struct {
	Nodes []NetworkNode `json:"nodes"`
	Edges []NetworkEdge `json:"edges"`
}

// NetworkNode is one entity in a network result
type NetworkNode struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// NetworkEdge is one relationship in a network result
type NetworkEdge struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	Properties map[string]any `json:"properties"`
}

const maxNetworkDepth = 5

// Network returns the entities connected to the given one within depth
// hops, with every edge on the traversed paths
func (s *NetworkService) Network(ctx context.Context, caseID string, entityID string, depth int) (*Network, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.NetworkService.Network")
	defer span.End()

	if depth <= 0 {
		depth = 1
	}
	if depth > maxNetworkDepth {
		depth = maxNetworkDepth
	}

	cypher := fmt.Sprintf(`
		MATCH (start {id: $id, case_id: $case_id})
		OPTIONAL MATCH p = (start)-[*1..%d]-(neighbor {case_id: $case_id})
		RETURN start, p
	`, depth)

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":      entityID,
			"case_id": caseID,
		})
		if err != nil {
			return nil, err
		}

		network := &Network{
			Nodes: make([]NetworkNode, 0),
			Edges: make([]NetworkEdge, 0),
		}
		seenNodes := make(map[string]bool)
		seenEdges := make(map[string]bool)
		found := false

		for result.Next(ctx) {
			record := result.Record()
			found = true

			if start, ok := record.Get("start"); ok && start != nil {
				collectNode(start.(neo4j.Node), network, seenNodes)
			}
			pathValue, ok := record.Get("p")
			if !ok || pathValue == nil {
				continue
			}
			path := pathValue.(neo4j.Path)
			nodesByElement := make(map[string]string, len(path.Nodes))
			for _, node := range path.Nodes {
				collectNode(node, network, seenNodes)
				nodesByElement[node.ElementId] = fmt.Sprintf("%v", node.Props["id"])
			}
			for _, rel := range path.Relationships {
				collectEdge(rel, nodesByElement, network, seenEdges)
			}
		}

		if !found {
			return nil, nil
		}
		return network, nil
	})

	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to query entity network")
		return nil, fmt.Errorf("failed to query entity network: %w", err)
	}

	if result == nil {
		return nil, nil
	}
	return result.(*Network), nil
}

func collectNode(node neo4j.Node, network *Network, seen map[string]bool) {
	id := fmt.Sprintf("%v", node.Props["id"])
	if seen[id] {
		return
	}
	seen[id] = true
	network.Nodes = append(network.Nodes, NetworkNode{
		ID:         id,
		Labels:     node.Labels,
		Properties: node.Props,
	})
}

func collectEdge(rel neo4j.Relationship, nodesByElement map[string]string, network *Network, seen map[string]bool) {
	id := fmt.Sprintf("%v", rel.Props["id"])
	if seen[id] {
		return
	}
	seen[id] = true
	network.Edges = append(network.Edges, NetworkEdge{
		ID:         id,
		Type:       rel.Type,
		SourceID:   nodesByElement[rel.StartElementId],
		TargetID:   nodesByElement[rel.EndElementId],
		Properties: rel.Props,
	})
}
