package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alfredjeanlab/pipeline/internal/model"
	"github.com/alfredjeanlab/pipeline/internal/transition"
)

// Confirmer adapts a PipelineClient to the transition engine: each
// optimistic move is settled by the server's move endpoint.
type Confirmer struct {
	Client PipelineClient
}

var _ transition.Confirmer = (*Confirmer)(nil)

func (c *Confirmer) ConfirmMove(ctx context.Context, clientID string, to model.Status, requestID uint64) error {
	resp, err := c.Client.MoveClient(ctx, &MoveRequest{
		ClientID:  clientID,
		ToStatus:  string(to),
		RequestID: strconv.FormatUint(requestID, 10),
	})
	if err != nil {
		return fmt.Errorf("confirm move: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("server rejected move of %s to %s", clientID, to)
	}
	return nil
}
