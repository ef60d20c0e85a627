package predictor

import (
	"context"
	"errors"
	"math"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/yourusername/value-tipster/internal/config"
	"github.com/yourusername/value-tipster/internal/models"
)

// startPredictorServer serves PredictMethod through an unknown-service handler
func startPredictorServer(t *testing.T, respond func(req *structpb.Struct) (*structpb.Struct, error)) *bufconn.Listener {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)

	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(_ interface{}, stream grpc.ServerStream) error {
		method, _ := grpc.MethodFromServerStream(stream)
		if method != PredictMethod {
			return status.Errorf(codes.Unimplemented, "unknown method %s", method)
		}
		req := &structpb.Struct{}
		if err := stream.RecvMsg(req); err != nil {
			return err
		}
		resp, err := respond(req)
		if err != nil {
			return err
		}
		return stream.SendMsg(resp)
	}))

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis
}

func dialBufconn(t *testing.T, lis *bufconn.Listener) *GRPCPredictor {
	t.Helper()
	cfg := config.PredictorConfig{
		Mode:                  "grpc",
		GRPCAddress:           "passthrough:///bufnet",
		RequestTimeoutSeconds: 5,
	}
	p, err := NewGRPCPredictor(cfg, testLogger(), grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestGRPCPredictorPredict(t *testing.T) {
	lis := startPredictorServer(t, func(req *structpb.Struct) (*structpb.Struct, error) {
		assert.Equal(t, "Liverpool", req.GetFields()["home_team"].GetStringValue())
		assert.Equal(t, "2022-23", req.GetFields()["excluded_season"].GetStringValue())
		return structpb.NewStruct(map[string]interface{}{
			"home_win":      0.2,
			"draw":          0.3,
			"away_win":      0.5,
			"model_variant": "xgb-v2",
		})
	})
	p := dialBufconn(t, lis)

	pred, err := p.Predict(context.Background(), models.PredictionRequest{
		FixtureID:      "fx-9",
		League:         "E0",
		HomeTeam:       "Liverpool",
		AwayTeam:       "Everton",
		ExcludedSeason: "2022-23",
	})
	require.NoError(t, err)

	assert.Equal(t, "fx-9", pred.FixtureID)
	assert.Equal(t, models.OutcomeAway, pred.Outcome)
	assert.InDelta(t, 0.5, pred.Confidence, 1e-9)
	assert.Equal(t, "xgb-v2", pred.ModelVariant)
}

func TestGRPCPredictorNotFound(t *testing.T) {
	lis := startPredictorServer(t, func(*structpb.Struct) (*structpb.Struct, error) {
		return nil, status.Error(codes.NotFound, "no such fixture")
	})
	p := dialBufconn(t, lis)

	_, err := p.Predict(context.Background(), models.PredictionRequest{FixtureID: "fx-1"})
	assert.True(t, errors.Is(err, models.ErrMissingPrediction))
}

func TestGRPCPredictorUnavailable(t *testing.T) {
	lis := startPredictorServer(t, func(*structpb.Struct) (*structpb.Struct, error) {
		return nil, status.Error(codes.Internal, "model crashed")
	})
	p := dialBufconn(t, lis)

	_, err := p.Predict(context.Background(), models.PredictionRequest{FixtureID: "fx-1"})
	assert.True(t, errors.Is(err, ErrPredictorUnavailable))
}

func TestPredictionFromStruct(t *testing.T) {
	missing, _ := structpb.NewStruct(map[string]interface{}{"home_win": 0.5, "draw": 0.5})
	_, err := predictionFromStruct("fx", missing)
	assert.True(t, errors.Is(err, ErrInvalidResponse))

	wrongType, _ := structpb.NewStruct(map[string]interface{}{"home_win": "high", "draw": 0.5, "away_win": 0.1})
	_, err = predictionFromStruct("fx", wrongType)
	assert.True(t, errors.Is(err, ErrInvalidResponse))
}

func TestPredictionFromStructNaNConfidence(t *testing.T) {
	s, err := structpb.NewStruct(map[string]interface{}{"home_win": 0.6, "draw": 0.25, "away_win": 0.15})
	require.NoError(t, err)
	s.Fields["confidence"] = structpb.NewNumberValue(math.NaN())

	pred, err := predictionFromStruct("fx", s)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, pred.Confidence, 1e-9)

	s.Fields["draw"] = structpb.NewNumberValue(math.NaN())
	_, err = predictionFromStruct("fx", s)
	assert.True(t, errors.Is(err, models.ErrMissingPrediction))
}

func TestInvalidResponseSkipsFixture(t *testing.T) {
	missing, _ := structpb.NewStruct(map[string]interface{}{"home_win": 0.5, "draw": 0.5})
	_, err := predictionFromStruct("fx", missing)
	assert.True(t, errors.Is(err, models.ErrMissingPrediction))
	assert.False(t, errors.Is(err, ErrPredictorUnavailable))
}
