package client

import (
	"context"

	"github.com/alfredjeanlab/pipeline/internal/model"
)

// Lister adapts a PipelineClient to the store-style listing signature, so
// code written against a store's ListClients can run over the HTTP API.
type Lister struct {
	Client PipelineClient
}

func (l Lister) ListClients(ctx context.Context, filter model.ClientFilter) ([]*model.Client, int, error) {
	statuses := make([]string, 0, len(filter.Status))
	for _, s := range filter.Status {
		statuses = append(statuses, string(s))
	}
	resp, err := l.Client.ListClients(ctx, &ListClientsRequest{
		Status:    statuses,
		Assignee:  filter.Assignee,
		Franchise: filter.Franchise,
		Search:    filter.Search,
		Sort:      filter.Sort,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	})
	if err != nil {
		return nil, 0, err
	}
	return resp.Clients, resp.Total, nil
}
