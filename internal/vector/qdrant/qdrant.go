// Package qdrant implements vector.Store against a Qdrant instance.
package qdrant

import (
	"context"

	"github.com/eddyvy/enscli-ai-manager/internal/errortypes"
	"github.com/eddyvy/enscli-ai-manager/internal/vector"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Store implements vector.Store over the Qdrant gRPC API.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	health      pb.QdrantClient
}

// New connects to Qdrant at endpoint (host:port). Both endpoint and apiKey
// are required deployment configuration; their absence is a configuration
// error surfaced before any dial.
func New(endpoint, apiKey string) (*Store, error) {
	if endpoint == "" || apiKey == "" {
		return nil, errortypes.Configuration("vector store config not found: endpoint and api key are required")
	}

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(apiKeyInterceptor(apiKey)),
	)
	if err != nil {
		return nil, errortypes.Connection(err, "qdrant connect")
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		health:      pb.NewQdrantClient(conn),
	}, nil
}

// apiKeyInterceptor attaches the access token to every outgoing call.
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func (s *Store) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	exists, err := s.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: collection,
	})
	if err != nil {
		return errortypes.Connection(err, "qdrant collection lookup")
	}

	if exists.GetResult().GetExists() {
		info, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: collection})
		if err != nil {
			return errortypes.Connection(err, "qdrant collection info")
		}
		stored := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if stored != 0 && stored != uint64(dimension) {
			return errortypes.InvalidArgument(
				"collection %q stores %d-dimensional vectors, requested %d", collection, stored, dimension)
		}
		return nil
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return errortypes.Connection(err, "qdrant collection create")
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, collection string, docs []vector.Document) error {
	points := make([]*pb.PointStruct, len(docs))
	for i, d := range docs {
		payload := map[string]*pb.Value{
			"content": {Kind: &pb.Value_StringValue{StringValue: d.Content}},
		}
		for k, v := range d.Metadata {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: d.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: d.Vector}}},
			Payload: payload,
		}
	}

	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return errortypes.Connection(err, "qdrant upsert")
	}
	return nil
}

func (s *Store) Search(ctx context.Context, collection string, vec []float32, limit int) ([]vector.SearchResult, error) {
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: collection,
		Vector:         vec,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, errortypes.Connection(err, "qdrant search")
	}

	results := make([]vector.SearchResult, len(resp.Result))
	for i, pt := range resp.Result {
		content := ""
		meta := make(map[string]string)
		for k, v := range pt.Payload {
			if k == "content" {
				content = v.GetStringValue()
			} else {
				meta[k] = v.GetStringValue()
			}
		}
		results[i] = vector.SearchResult{
			ID:       pt.Id.GetUuid(),
			Score:    pt.Score,
			Content:  content,
			Vector:   pt.GetVectors().GetVector().GetData(),
			Metadata: meta,
		}
	}
	return results, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.health.HealthCheck(ctx, &pb.HealthCheckRequest{}); err != nil {
		return errortypes.Connection(err, "qdrant health check")
	}
	return nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

var _ vector.Store = (*Store)(nil)
