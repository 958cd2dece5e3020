// Package rpc serves the node's JSON-RPC API over HTTP: block templates, the
// independent root query and the calls that feed the pending pool.
package rpc

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/services/blockassembly"
	"github.com/horizenofficial/sctemplate/services/blockchain"
	"github.com/horizenofficial/sctemplate/services/mempool"
	"github.com/horizenofficial/sctemplate/settings"
	"github.com/horizenofficial/sctemplate/stores/sidechain"
	"github.com/horizenofficial/sctemplate/ulogger"
	"github.com/horizenofficial/sctemplate/util/health"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Pool is the part of the pending pool the RPC calls feed and report on.
type Pool interface {
	AddTransaction(ctx context.Context, tx *model.Transaction) error
	AddCertificate(ctx context.Context, cert *model.Certificate) error
	Info() mempool.Info
}

// HealthFunc reports the health of the whole node for /health and /alive.
type HealthFunc func(ctx context.Context, checkLiveness bool) (int, string, error)

type RPCServer struct {
	logger              ulogger.Logger
	settings            *settings.Settings
	blockAssemblyClient blockassembly.ClientI
	blockchainClient    blockchain.ClientI
	pool                Pool
	sidechains          sidechain.Store
	healthFunc          HealthFunc
	e                   *echo.Echo
}

func NewServer(logger ulogger.Logger, tSettings *settings.Settings, blockAssemblyClient blockassembly.ClientI,
	blockchainClient blockchain.ClientI, pool Pool, sidechains sidechain.Store) *RPCServer {
	initPrometheusMetrics()

	s := &RPCServer{
		logger:              logger,
		settings:            tSettings,
		blockAssemblyClient: blockAssemblyClient,
		blockchainClient:    blockchainClient,
		pool:                pool,
		sidechains:          sidechains,
	}

	s.healthFunc = s.Health

	return s
}

// SetHealthFunc replaces the check behind /health and /alive, usually with the
// service manager's aggregate.
func (s *RPCServer) SetHealthFunc(fn HealthFunc) {
	s.healthFunc = fn
}

func (s *RPCServer) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	prometheusRPCHealth.Inc()

	if checkLiveness {
		return http.StatusOK, "OK", nil
	}

	checks := []health.Check{
		{Name: "BlockAssemblyClient", Check: s.blockAssemblyClient.Health},
		{Name: "BlockchainClient", Check: s.blockchainClient.Health},
		{Name: "SidechainStore", Check: s.sidechains.Health},
	}

	return health.CheckAll(ctx, checkLiveness, checks)
}

func (s *RPCServer) Init(_ context.Context) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.settings.RPC.AllowedOrigins,
		AllowMethods: []string{echo.GET, echo.POST},
	}))
	e.Use(middleware.BodyLimit(s.settings.RPC.MaxBodySize))

	e.POST("/", s.handleRPC)
	e.GET("/health", s.healthHandler(false))
	e.GET("/alive", s.healthHandler(true))
	e.GET(s.settings.PrometheusEndpoint, echo.WrapHandler(promhttp.Handler()))

	s.e = e

	return nil
}

func (s *RPCServer) healthHandler(checkLiveness bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		status, details, err := s.healthFunc(c.Request().Context(), checkLiveness)
		if err != nil {
			s.logger.Errorf("[RPC] health check failed: %v", err)
		}

		return c.String(status, details)
	}
}

// Start serves the API until ctx is done.
func (s *RPCServer) Start(ctx context.Context, readyCh chan<- struct{}) error {
	if s.e == nil {
		return errors.NewServiceNotStartedError("rpc server was not initialized")
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Infof("[RPC] service shutting down")

		if err := s.e.Shutdown(shutdownCtx); err != nil {
			s.logger.Errorf("[RPC] service shutdown error: %v", err)
		}
	}()

	close(readyCh)

	s.logger.Infof("[RPC] service listening on %s", s.settings.RPC.ListenAddress)

	if err := s.e.Start(s.settings.RPC.ListenAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.NewServiceError("rpc server failed", err)
	}

	return nil
}

func (s *RPCServer) Stop(ctx context.Context) error {
	if s.e == nil {
		return nil
	}

	return s.e.Shutdown(ctx)
}

// ServeHTTP lets tests drive the API without a listener.
func (s *RPCServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

func (s *RPCServer) handleRPC(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, &Response{Error: NewRPCError(ErrRPCInvalidRequest, "failed to read request body")})
	}

	var req Request
	if err = json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, &Response{Error: NewRPCError(ErrRPCParse, "parse error: %v", err)})
	}

	if req.Method == "" {
		return c.JSON(http.StatusBadRequest, &Response{ID: req.ID, Error: NewRPCError(ErrRPCInvalidRequest, "method is required")})
	}

	ctx := c.Request().Context()

	if s.settings.RPC.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.settings.RPC.Timeout)
		defer cancel()
	}

	result, rpcErr := s.dispatch(ctx, &req)

	return c.JSON(http.StatusOK, &Response{Result: result, Error: rpcErr, ID: req.ID})
}

func (s *RPCServer) dispatch(ctx context.Context, req *Request) (interface{}, *RPCError) {
	handler, ok := rpcHandlers[req.Method]
	if !ok {
		prometheusRPCErrors.WithLabelValues("unknown", "-32601").Inc()
		return nil, NewRPCError(ErrRPCMethodNotFound, "method not found: %s", req.Method)
	}

	start := time.Now()

	result, err := handler(ctx, s, req.Params)

	prometheusRPCRequests.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	if err != nil {
		rpcErr := toRPCError(err)

		prometheusRPCErrors.WithLabelValues(req.Method, errorCodeLabel(rpcErr.Code)).Inc()
		s.logger.Debugf("[RPC] %s failed: %v", req.Method, err)

		return nil, rpcErr
	}

	return result, nil
}

// jsonSerializer makes echo encode with jsoniter.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}

	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := json.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}

	return nil
}
