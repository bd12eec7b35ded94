// Package export serializes the client book for downstream consumers and
// ships it to configured destinations on a schedule.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/alfredjeanlab/pipeline/internal/model"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version     string    `json:"version"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	ClientCount int       `json:"client_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ClientLister is the slice of the store the export path needs. The HTTP
// client satisfies it too, so pipectl can export without database access.
type ClientLister interface {
	ListClients(ctx context.Context, filter model.ClientFilter) ([]*model.Client, int, error)
}

// listAll fetches every client, sorted by ID for stable output.
func listAll(ctx context.Context, s ClientLister) ([]*model.Client, error) {
	clients, _, err := s.ListClients(ctx, model.ClientFilter{Sort: "created_at"})
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].ID < clients[j].ID
	})
	return clients, nil
}

// ExportJSONL writes all clients from the store as JSONL to w and returns
// the number of clients written.
func ExportJSONL(ctx context.Context, s ClientLister, w io.Writer) (int, error) {
	clients, err := listAll(ctx, s)
	if err != nil {
		return 0, err
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:     "1",
		Type:        "header",
		Timestamp:   time.Now().UTC(),
		ClientCount: len(clients),
	}); err != nil {
		return 0, fmt.Errorf("encode header: %w", err)
	}

	for _, c := range clients {
		if err := enc.Encode(record{Type: "client", Data: c}); err != nil {
			return 0, fmt.Errorf("encode client %s: %w", c.ID, err)
		}
	}

	return len(clients), nil
}

// csvColumns is the fixed column order for ExportCSV.
var csvColumns = []string{
	"id", "name", "email", "phone", "company", "franchise",
	"status", "assignee", "version", "created_at", "created_by", "updated_at",
}

// ExportCSV writes all clients from the store as CSV to w and returns the
// number of clients written. The first row is the column header.
func ExportCSV(ctx context.Context, s ClientLister, w io.Writer) (int, error) {
	clients, err := listAll(ctx, s)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for _, c := range clients {
		row := []string{
			c.ID, c.Name, c.Email, c.Phone, c.Company, c.Franchise,
			string(c.Status), c.Assignee, strconv.FormatInt(c.Version, 10),
			c.CreatedAt.UTC().Format(time.RFC3339), c.CreatedBy,
			c.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("write client %s: %w", c.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}

	return len(clients), nil
}
