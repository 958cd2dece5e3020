// Package daemon wires the node's stores and services together and runs them
// under one service manager.
package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/services/rpc"
	"github.com/horizenofficial/sctemplate/settings"
	"github.com/horizenofficial/sctemplate/stores/sidechain"
	"github.com/horizenofficial/sctemplate/ulogger"
	"github.com/horizenofficial/sctemplate/util/servicemanager"
	"github.com/horizenofficial/sctemplate/util/tracing"
)

type Daemon struct {
	Ctx            context.Context
	ServiceManager *servicemanager.ServiceManager

	doneCh        chan struct{}
	closeDoneOnce sync.Once
	stopCh        chan struct{}
	closeStopOnce sync.Once
	loggerFactory func(serviceName string) ulogger.Logger

	sidechains sidechain.Store
	rpcServer  *rpc.RPCServer
}

func New(opts ...Option) *Daemon {
	d := &Daemon{
		Ctx:    context.Background(),
		doneCh: make(chan struct{}),
		stopCh: make(chan struct{}),
		loggerFactory: func(serviceName string) ulogger.Logger {
			return ulogger.New(serviceName)
		},
	}

	for _, opt := range opts {
		opt(d)
	}

	d.ServiceManager = servicemanager.NewServiceManager(d.Ctx, d.loggerFactory("ServiceManager"))

	return d
}

// RPCServer returns the JSON-RPC front end once Start has registered it.
func (d *Daemon) RPCServer() *rpc.RPCServer {
	return d.rpcServer
}

// Start runs the node until its services stop or Stop is called. readyCh, when
// given, is closed once every service is ready.
func (d *Daemon) Start(logger ulogger.Logger, tSettings *settings.Settings, readyCh ...chan struct{}) error {
	defer d.closeStopOnce.Do(func() { close(d.stopCh) })

	sm := d.ServiceManager

	if err := tracing.InitTracer(tSettings); err != nil {
		logger.Warnf("tracing disabled: %v", err)
	}

	if err := d.startServices(tSettings, sm); err != nil {
		logger.Errorf("error starting services: %v", err)
		sm.ForceShutdown()
		_ = sm.Wait()
		d.closeStores(logger)

		return err
	}

	if len(readyCh) > 0 && readyCh[0] != nil {
		go func() {
			if err := sm.WaitForServiceToBeReady(sm.Ctx); err == nil {
				close(readyCh[0])
			}
		}()
	}

	waitErr := make(chan error, 1)

	go func() {
		waitErr <- sm.Wait()
	}()

	var err error

	select {
	case err = <-waitErr:
		if err != nil {
			logger.Errorf("services failed: %v", err)
		}
	case <-d.doneCh:
		logger.Infof("daemon shutdown requested")

		sm.ForceShutdown()

		err = <-waitErr
	}

	d.closeStores(logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if tracerErr := tracing.ShutdownTracer(shutdownCtx); tracerErr != nil {
		logger.Warnf("error shutting down tracer: %v", tracerErr)
	}

	logger.Infof("daemon shutdown completed")

	return err
}

func (d *Daemon) closeStores(logger ulogger.Logger) {
	if d.sidechains == nil {
		return
	}

	if err := d.sidechains.Close(); err != nil {
		logger.Errorf("error closing sidechain store: %v", err)
	}
}

// Stop asks Start to shut down and waits for it, 10 seconds unless a timeout
// is given.
func (d *Daemon) Stop(timeout ...time.Duration) error {
	d.closeDoneOnce.Do(func() { close(d.doneCh) })

	shutdownTimeout := 10 * time.Second
	if len(timeout) > 0 {
		shutdownTimeout = timeout[0]
	}

	select {
	case <-d.stopCh:
		return nil
	case <-time.After(shutdownTimeout):
		return errors.NewProcessingError("timeout waiting for services to stop after %v, still starting: %v", shutdownTimeout, d.ServiceManager.ServicesNotReady())
	}
}
