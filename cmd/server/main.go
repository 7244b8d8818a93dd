// Package main runs the replay service: a gin HTTP API and a gRPC endpoint
// in front of the replay engine, with Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	pb "github.com/iminoaru/zaphft/proto"
	"github.com/iminoaru/zaphft/services/config"
	"github.com/iminoaru/zaphft/services/engine"
	"github.com/iminoaru/zaphft/services/marketdata"
	"github.com/iminoaru/zaphft/services/monitoring"
	"github.com/iminoaru/zaphft/strategies"
)

// ReplayService implements the gRPC replay service and the REST handlers.
type ReplayService struct {
	pb.UnimplementedReplayServiceServer
	cfg     *config.Config
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

func NewReplayService(cfg *config.Config, logger *zap.Logger) *ReplayService {
	return &ReplayService{
		cfg:     cfg,
		logger:  logger,
		metrics: monitoring.NewMetrics(cfg.Monitoring.Namespace),
	}
}

// ExecuteReplay runs one replay synchronously and returns its report.
func (s *ReplayService) ExecuteReplay(ctx context.Context, req *pb.ReplayRequest) (*pb.ReplayResponse, error) {
	started := time.Now()

	src, err := s.openSource(ctx, req.Source)
	if err != nil {
		s.metrics.ReplaysTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	strat, err := strategies.Build(strategyName(req.Strategy), req.StrategyParams)
	if err != nil {
		s.metrics.ReplaysTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	runCfg := engine.RunConfig{
		Name:           req.JobName,
		MaxEvents:      req.MaxEvents,
		ImbalanceDepth: s.cfg.Engine.ImbalanceDepth,
		Annualization:  req.Annualization,
		Exec: engine.ExecConfig{
			MaxPosition: req.MaxPosition,
			Fees: engine.ProportionalFee{
				Maker: req.MakerFeeRate,
				Taker: req.TakerFeeRate,
			},
		},
	}
	if runCfg.Exec.MaxPosition <= 0 {
		runCfg.Exec.MaxPosition = s.cfg.Engine.MaxPosition
	}
	if runCfg.Exec.Fees.Maker <= 0 {
		runCfg.Exec.Fees.Maker = s.cfg.Engine.MakerFee
	}
	if runCfg.Exec.Fees.Taker <= 0 {
		runCfg.Exec.Fees.Taker = s.cfg.Engine.TakerFee
	}

	s.logger.Info("starting replay",
		zap.String("job", req.JobName),
		zap.String("source", req.Source),
		zap.String("strategy", strat.Name()))

	res, err := engine.NewRunner(runCfg, s.logger).Run(ctx, src, strat)
	if err != nil {
		s.metrics.ReplaysTotal.WithLabelValues("error").Inc()
		s.logger.Error("replay failed", zap.String("job", req.JobName), zap.Error(err))
		return nil, err
	}

	s.metrics.ReplaysTotal.WithLabelValues("ok").Inc()
	s.metrics.EventsProcessed.Add(float64(res.EventsProcessed))
	s.metrics.TradesTotal.Add(float64(res.Report.TradeCount))
	s.metrics.ReplayDuration.Observe(time.Since(started).Seconds())

	return toResponse(res), nil
}

// openSource treats "ch:" prefixed sources as ClickHouse tables and anything
// else as a CSV path.
func (s *ReplayService) openSource(ctx context.Context, source string) (engine.SnapshotSource, error) {
	if len(source) > 3 && source[:3] == "ch:" {
		chCfg := marketdata.ClickHouseConfig{
			Addr:     s.cfg.ClickHouse.Addr,
			HTTPURL:  s.cfg.ClickHouse.HTTPURL,
			Database: s.cfg.ClickHouse.Database,
			Table:    source[3:],
			Username: s.cfg.ClickHouse.Username,
			Password: s.cfg.ClickHouse.Password,
		}
		ch, err := marketdata.OpenClickHouse(ctx, chCfg)
		if err != nil {
			return nil, err
		}
		if err := ch.Load(ctx); err != nil {
			ch.Close()
			return nil, err
		}
		return ch, nil
	}
	return marketdata.OpenCSV(source)
}

func strategyName(kind pb.StrategyKind) string {
	if kind == pb.StrategyKind_MOMENTUM {
		return "momentum"
	}
	return "market_maker"
}

func toResponse(res *engine.RunResult) *pb.ReplayResponse {
	trades := make([]*pb.TradeRecord, len(res.Trades))
	for i, t := range res.Trades {
		trades[i] = &pb.TradeRecord{
			TimestampUs:      t.TimestampUs,
			Side:             t.Side.String(),
			Price:            t.Price,
			Quantity:         t.Quantity,
			Fee:              t.Fee,
			RealizedPnlDelta: t.RealizedPnLDelta,
		}
	}
	curve := make([]*pb.EquitySample, len(res.Report.EquityCurve))
	for i, pt := range res.Report.EquityCurve {
		curve[i] = &pb.EquitySample{TimestampUs: pt.TimestampUs, Equity: pt.Equity}
	}
	return &pb.ReplayResponse{
		JobId:           res.JobID,
		EventsProcessed: res.EventsProcessed,
		TotalPnl:        res.Report.TotalPnL,
		SharpeRatio:     res.Report.SharpeRatio,
		MaxDrawdown:     res.Report.MaxDrawdown,
		WinRate:         res.Report.WinRate,
		TradeCount:      res.Report.TradeCount,
		AvgTradePnl:     res.Report.AvgTradePnL,
		Trades:          trades,
		EquityCurve:     curve,
	}
}

// HTTP handlers

func (s *ReplayService) setupHTTPRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/replays", s.handleReplayRequest)
	}
	r.GET("/healthz", s.handleHealthCheck)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

func (s *ReplayService) handleReplayRequest(c *gin.Context) {
	var req pb.ReplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.ExecuteReplay(c.Request.Context(), &req)
	if err != nil {
		s.logger.Error("replay request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *ReplayService) handleHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting replay service", zap.String("environment", cfg.Environment))

	service := NewReplayService(cfg, logger)

	grpcServer := grpc.NewServer()
	pb.RegisterReplayServiceServer(grpcServer, service)
	reflection.Register(grpcServer)

	gin.SetMode(gin.ReleaseMode)
	httpRouter := gin.New()
	httpRouter.Use(gin.Recovery())
	service.setupHTTPRoutes(httpRouter)

	go func() {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			logger.Fatal("failed to listen on gRPC port", zap.Error(err))
		}
		logger.Info("gRPC server listening", zap.Int("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal("gRPC serve", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("HTTP server listening", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpRouter.Run(fmt.Sprintf(":%d", cfg.Server.HTTPPort)); err != nil {
			logger.Fatal("HTTP serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	grpcServer.GracefulStop()
}
