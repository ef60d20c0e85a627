package predictor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/yourusername/value-tipster/internal/config"
	"github.com/yourusername/value-tipster/internal/logger"
	"github.com/yourusername/value-tipster/internal/models"
)

// PredictMethod is the full gRPC method name of the prediction service.
// Requests and responses are google.protobuf.Struct messages.
const PredictMethod = "/valuetipster.predictor.v1.Predictor/Predict"

// GRPCPredictor asks a remote prediction service over gRPC
type GRPCPredictor struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	apiKey  string
	variant string
	logger  *logger.PredictorLogger
}

// NewGRPCPredictor creates a gRPC predictor client. The connection is
// established lazily; extra dial options are appended to the defaults.
func NewGRPCPredictor(cfg config.PredictorConfig, log *logrus.Logger, opts ...grpc.DialOption) (*GRPCPredictor, error) {
	address := cfg.GRPCAddress
	creds := grpc.WithTransportCredentials(insecure.NewCredentials())
	if strings.HasPrefix(address, "https://") {
		address = strings.TrimPrefix(address, "https://")
		creds = grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(nil, ""))
	}

	connectParams := grpc.ConnectParams{
		Backoff: backoff.Config{
			BaseDelay:  1 * time.Second,
			Multiplier: 1.6,
			Jitter:     0.2,
			MaxDelay:   5 * time.Second,
		},
		MinConnectTimeout: 10 * time.Second,
	}

	keepAlive := keepalive.ClientParameters{
		Time:                30 * time.Second,
		Timeout:             10 * time.Second,
		PermitWithoutStream: true,
	}

	dialOpts := append([]grpc.DialOption{
		creds,
		grpc.WithConnectParams(connectParams),
		grpc.WithKeepaliveParams(keepAlive),
	}, opts...)

	conn, err := grpc.NewClient(address, dialOpts...)
	if err != nil {
		log.WithError(err).Error("Failed to create predictor gRPC client")
		return nil, fmt.Errorf("%w: %v", ErrPredictorUnavailable, err)
	}

	log.WithField("address", address).Info("Predictor gRPC client created")
	return &GRPCPredictor{
		conn:    conn,
		timeout: cfg.RequestTimeout(),
		apiKey:  cfg.APIKey,
		variant: "remote-grpc",
		logger:  logger.NewPredictorLogger(log),
	}, nil
}

// Variant returns the predictor variant
func (c *GRPCPredictor) Variant() string {
	return c.variant
}

// Predict calls the remote Predict method
func (c *GRPCPredictor) Predict(ctx context.Context, r models.PredictionRequest) (*models.Prediction, error) {
	start := time.Now()
	defer func() {
		PredictionLatency.WithLabelValues("grpc").Observe(time.Since(start).Seconds())
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-api-key", c.apiKey)
	}

	req, err := structpb.NewStruct(map[string]interface{}{
		"fixture_id":      r.FixtureID,
		"league":          r.League,
		"home_team":       r.HomeTeam,
		"away_team":       r.AwayTeam,
		"as_of":           r.AsOf.UTC().Format(time.RFC3339),
		"excluded_season": r.ExcludedSeason,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, PredictMethod, req, resp); err != nil {
		if status.Code(err) == codes.NotFound {
			PredictionErrorsTotal.WithLabelValues("grpc", "no_prediction").Inc()
			return nil, fmt.Errorf("%w: fixture %s", models.ErrMissingPrediction, r.FixtureID)
		}
		PredictionErrorsTotal.WithLabelValues("grpc", "rpc_failed").Inc()
		c.logger.LogPredictionError(c.variant, r.FixtureID, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrPredictorUnavailable, err)
	}

	pred, err := predictionFromStruct(r.FixtureID, resp)
	if err != nil {
		PredictionErrorsTotal.WithLabelValues("grpc", "invalid").Inc()
		return nil, err
	}
	if pred.ModelVariant == "" {
		pred.ModelVariant = c.variant
	}

	PredictionsTotal.WithLabelValues("grpc", "false").Inc()
	c.logger.LogPrediction(pred.ModelVariant, r.FixtureID, false, float64(time.Since(start).Milliseconds()))
	return pred, nil
}

func predictionFromStruct(fixtureID string, s *structpb.Struct) (*models.Prediction, error) {
	fields := s.GetFields()
	number := func(name string) (float64, error) {
		v, ok := fields[name]
		if !ok {
			return 0, fmt.Errorf("%w: missing field %s", ErrInvalidResponse, name)
		}
		if _, ok := v.GetKind().(*structpb.Value_NumberValue); !ok {
			return 0, fmt.Errorf("%w: field %s is not a number", ErrInvalidResponse, name)
		}
		return v.GetNumberValue(), nil
	}

	home, err := number("home_win")
	if err != nil {
		return nil, err
	}
	draw, err := number("draw")
	if err != nil {
		return nil, err
	}
	away, err := number("away_win")
	if err != nil {
		return nil, err
	}

	pred := &models.Prediction{
		FixtureID:    fixtureID,
		HomeWin:      home,
		Draw:         draw,
		AwayWin:      away,
		Confidence:   fields["confidence"].GetNumberValue(),
		ModelVariant: fields["model_variant"].GetStringValue(),
	}
	if err := pred.Normalize(); err != nil {
		return nil, err
	}
	return pred, nil
}

// Close closes the gRPC connection
func (c *GRPCPredictor) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
