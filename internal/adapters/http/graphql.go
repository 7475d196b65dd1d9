package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/fieldroute/internal/core/domain"
	"github.com/samirrijal/fieldroute/internal/pkg/geospatial"
	"github.com/samirrijal/fieldroute/internal/pkg/polyline"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	geoPointInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "GeoPointInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"latitude":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"longitude": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	clientInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "ClientInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"id":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"name":     &graphql.InputObjectFieldConfig{Type: graphql.String},
			"address":  &graphql.InputObjectFieldConfig{Type: graphql.String},
			"location": &graphql.InputObjectFieldConfig{Type: geoPointInput},
		},
	})

	regionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Region",
		Fields: graphql.Fields{
			"center":          &graphql.Field{Type: geoPointType},
			"latitude_delta":  &graphql.Field{Type: graphql.Float},
			"longitude_delta": &graphql.Field{Type: graphql.Float},
		},
	})

	clientType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Client",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"address":  &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: geoPointType},
		},
	})

	legType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteLeg",
		Fields: graphql.Fields{
			"distance_meters":  &graphql.Field{Type: graphql.Float},
			"duration_seconds": &graphql.Field{Type: graphql.Float},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"ordered_clients":        &graphql.Field{Type: graphql.NewList(clientType)},
			"path_points":            &graphql.Field{Type: graphql.NewList(geoPointType)},
			"encoded_path":           &graphql.Field{Type: graphql.String},
			"total_distance_meters":  &graphql.Field{Type: graphql.Float},
			"total_duration_seconds": &graphql.Field{Type: graphql.Float},
			"legs":                   &graphql.Field{Type: graphql.NewList(legType)},
			"waypoint_order":         &graphql.Field{Type: graphql.NewList(graphql.Int)},
			"region":                 &graphql.Field{Type: regionType},
			"navigation_url":         &graphql.Field{Type: graphql.String},
			"source": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if r, ok := p.Source.(*domain.RouteResult); ok {
						return string(r.Source), nil
					}
					return nil, nil
				},
			},
		},
	})

	outcomeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteOutcome",
		Fields: graphql.Fields{
			"success": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"route":   &graphql.Field{Type: routeType},
			"error":   &graphql.Field{Type: graphql.String},
			"code":    &graphql.Field{Type: graphql.String},
		},
	})

	distanceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Distance",
		Fields: graphql.Fields{
			"meters": &graphql.Field{Type: graphql.Float},
			"text":   &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"distance": &graphql.Field{
				Type:        distanceType,
				Description: "Great-circle distance between two points",
				Args: graphql.FieldConfigArgument{
					"from": &graphql.ArgumentConfig{Type: graphql.NewNonNull(geoPointInput)},
					"to":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(geoPointInput)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					from, err := pointArg(p.Args["from"])
					if err != nil {
						return nil, err
					}
					to, err := pointArg(p.Args["to"])
					if err != nil {
						return nil, err
					}
					m := geospatial.Distance(from, to)
					return map[string]interface{}{"meters": m, "text": geospatial.FormatDistance(m)}, nil
				},
			},
			"region": &graphql.Field{
				Type:        regionType,
				Description: "Map region framing a set of points",
				Args: graphql.FieldConfigArgument{
					"points":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(geoPointInput)))},
					"padding": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: geospatial.DefaultPadding},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					points, err := pointsArg(p.Args["points"])
					if err != nil {
						return nil, err
					}
					padding, _ := p.Args["padding"].(float64)
					return geospatial.BoundingRegion(points, padding), nil
				},
			},
			"decodePolyline": &graphql.Field{
				Type:        graphql.NewList(geoPointType),
				Description: "Decode an encoded polyline",
				Args: graphql.FieldConfigArgument{
					"path": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return polyline.DecodeStrict(p.Args["path"].(string))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"optimizeRoute": &graphql.Field{
				Type:        graphql.NewNonNull(outcomeType),
				Description: "Order clients by nearest neighbour and resolve the path. With ordered: true the given order is kept.",
				Args: graphql.FieldConfigArgument{
					"clients": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(clientInput)))},
					"start":   &graphql.ArgumentConfig{Type: geoPointInput},
					"mode":    &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: string(domain.ModeDriving)},
					"ordered": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					clients, err := clientsArg(p.Args["clients"])
					if err != nil {
						return nil, err
					}
					mode := domain.TravelMode(fmt.Sprint(p.Args["mode"]))

					var route *domain.RouteResult
					if ordered, _ := p.Args["ordered"].(bool); ordered {
						route, err = deps.Optimizer.CalculateSimpleRoute(p.Context, clients, mode)
					} else {
						var start *domain.GeoPoint
						if raw, ok := p.Args["start"]; ok && raw != nil {
							s, err := rawPoint(raw)
							if err != nil {
								return nil, err
							}
							start = &s
						}
						route, err = deps.Optimizer.Optimize(p.Context, clients, start, mode)
					}
					return domain.Outcome(route, err), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// rawPoint reads a GeoPointInput without range checks. Client locations and
// route starts are validated by the optimizer, which reports them in the outcome.
func rawPoint(raw interface{}) (domain.GeoPoint, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return domain.GeoPoint{}, fmt.Errorf("expected a point, got %T", raw)
	}
	lat, _ := m["latitude"].(float64)
	lon, _ := m["longitude"].(float64)
	return domain.GeoPoint{Lat: lat, Lon: lon}, nil
}

// pointArg reads a GeoPointInput that must hold valid coordinates.
func pointArg(raw interface{}) (domain.GeoPoint, error) {
	p, err := rawPoint(raw)
	if err != nil {
		return p, err
	}
	if !p.Valid() {
		return domain.GeoPoint{}, fmt.Errorf("coordinates out of range (%v, %v)", p.Lat, p.Lon)
	}
	return p, nil
}

func pointsArg(raw interface{}) ([]domain.GeoPoint, error) {
	list, _ := raw.([]interface{})
	points := make([]domain.GeoPoint, 0, len(list))
	for _, item := range list {
		p, err := pointArg(item)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

func clientsArg(raw interface{}) ([]domain.Client, error) {
	list, _ := raw.([]interface{})
	clients := make([]domain.Client, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected a client, got %T", item)
		}
		cl := domain.Client{}
		cl.ID, _ = m["id"].(string)
		cl.Name, _ = m["name"].(string)
		cl.Address, _ = m["address"].(string)
		if loc, ok := m["location"]; ok && loc != nil {
			p, err := rawPoint(loc)
			if err != nil {
				return nil, err
			}
			cl.Location = &p
		}
		clients = append(clients, cl)
	}
	return clients, nil
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
