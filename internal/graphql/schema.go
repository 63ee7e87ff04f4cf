// Package graphql exposes a read-only GraphQL view of the ticket engine.
// Amounts and ticket IDs are strings: uint64 exceeds GraphQL's Int.
package graphql

import (
	"fmt"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"

	"github.com/iliyamo/event-ticket-registry/internal/model"
	"github.com/iliyamo/event-ticket-registry/internal/registry"
	"github.com/iliyamo/event-ticket-registry/internal/ticket"
)

var policyType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Policy",
	Fields: graphql.Fields{
		"name":       &graphql.Field{Type: graphql.String},
		"symbol":     &graphql.Field{Type: graphql.String},
		"price":      &graphql.Field{Type: graphql.String},
		"maxTickets": &graphql.Field{Type: graphql.String},
		"issued":     &graphql.Field{Type: graphql.String},
		"admin":      &graphql.Field{Type: graphql.String},
	},
})

var ticketType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Ticket",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.String},
		"owner":       &graphql.Field{Type: graphql.String},
		"metadataURI": &graphql.Field{Type: graphql.String},
		"used":        &graphql.Field{Type: graphql.Boolean},
	},
})

func ticketMap(t model.Ticket) map[string]interface{} {
	return map[string]interface{}{
		"id":          t.ID.String(),
		"owner":       string(t.Owner),
		"metadataURI": t.MetadataURI,
		"used":        t.Used,
	}
}

// NewSchema builds the query schema over e.  holdings answers the tickets
// query.
func NewSchema(e *ticket.Engine, holdings registry.Lister) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"policy": &graphql.Field{
				Type: policyType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					s := e.Snapshot()
					return map[string]interface{}{
						"name":       s.Name,
						"symbol":     s.Symbol,
						"price":      s.Price.String(),
						"maxTickets": fmt.Sprint(s.MaxTickets),
						"issued":     fmt.Sprint(s.Issued),
						"admin":      string(s.Admin),
					}, nil
				},
			},
			"ticket": &graphql.Field{
				Type: ticketType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := model.ParseTicketID(p.Args["id"].(string))
					if err != nil {
						return nil, fmt.Errorf("invalid ticket id %q", p.Args["id"])
					}
					t, err := e.Ticket(p.Context, id)
					if err != nil {
						return nil, err
					}
					return ticketMap(t), nil
				},
			},
			"tickets": &graphql.Field{
				Type: graphql.NewList(ticketType),
				Args: graphql.FieldConfigArgument{
					"owner": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					owner := model.AccountID(p.Args["owner"].(string))
					ids, err := holdings.TokensOf(p.Context, owner)
					if err != nil {
						return nil, err
					}
					out := make([]interface{}, 0, len(ids))
					for _, id := range ids {
						t, err := e.Ticket(p.Context, id)
						if err != nil {
							return nil, err
						}
						out = append(out, ticketMap(t))
					}
					return out, nil
				},
			},
		},
	})
	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}

// NewHandler serves schema over GET and POST.
func NewHandler(schema graphql.Schema) http.Handler {
	return handler.New(&handler.Config{
		Schema:   &schema,
		Pretty:   true,
		GraphiQL: false,
	})
}
