// Package servicemanager runs the node's services in registration order and
// tears them down in reverse when one fails or the process is signalled.
package servicemanager

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/ulogger"
	"github.com/horizenofficial/sctemplate/util/health"
	"golang.org/x/sync/errgroup"
)

// Service is a long running part of the node. Start must close readyCh once
// the service can take requests and then block until ctx is done.
type Service interface {
	Health(ctx context.Context, checkLiveness bool) (int, string, error)
	Init(ctx context.Context) error
	Start(ctx context.Context, readyCh chan<- struct{}) error
	Stop(ctx context.Context) error
}

type serviceWrapper struct {
	name     string
	instance Service
	readyCh  chan struct{}
}

type ServiceManager struct {
	mu           sync.Mutex
	services     []*serviceWrapper
	logger       ulogger.Logger
	Ctx          context.Context
	cancelFunc   context.CancelFunc
	g            *errgroup.Group
	startTimeout time.Duration
	stopTimeout  time.Duration
}

// NewServiceManager returns a manager whose context is cancelled on SIGINT or
// SIGTERM.
func NewServiceManager(ctx context.Context, logger ulogger.Logger) *ServiceManager {
	ctx, cancelFunc := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)

	sm := &ServiceManager{
		logger:       logger,
		Ctx:          ctx,
		cancelFunc:   cancelFunc,
		g:            g,
		startTimeout: 5 * time.Second,
		stopTimeout:  5 * time.Second,
	}

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigs)

		select {
		case <-sigs:
			sm.logger.Infof("Received shutdown signal, stopping services")
			sm.cancelFunc()
		case <-ctx.Done():
		}
	}()

	return sm
}

// AddService initializes the service and schedules its start. A service only
// starts once the one registered before it is ready.
func (sm *ServiceManager) AddService(name string, service Service) error {
	sm.mu.Lock()

	var previous *serviceWrapper
	if len(sm.services) > 0 {
		previous = sm.services[len(sm.services)-1]
	}

	sw := &serviceWrapper{
		name:     name,
		instance: service,
		readyCh:  make(chan struct{}),
	}

	sm.services = append(sm.services, sw)
	sm.mu.Unlock()

	sm.logger.Infof("Initializing service %s", name)

	if err := service.Init(sm.Ctx); err != nil {
		return errors.NewServiceError("failed to initialize service %s", name, err)
	}

	sm.g.Go(func() error {
		if previous != nil {
			if err := sm.waitForPreviousService(sw, previous); err != nil {
				return err
			}
		}

		sm.logger.Infof("Starting service %s", name)

		if err := service.Start(sm.Ctx, sw.readyCh); err != nil {
			sm.logger.Errorf("Error from service start %s: %v", name, err)
			return err
		}

		return nil
	})

	return nil
}

func (sm *ServiceManager) waitForPreviousService(sw, previous *serviceWrapper) error {
	timer := time.NewTimer(sm.startTimeout)
	defer timer.Stop()

	select {
	case <-previous.readyCh:
		return nil
	case <-sm.Ctx.Done():
		return sm.Ctx.Err()
	case <-timer.C:
		return errors.NewServiceError("%s timed out waiting for %s to become ready", sw.name, previous.name)
	}
}

// WaitForServiceToBeReady blocks until every registered service has closed its
// ready channel or ctx is done.
func (sm *ServiceManager) WaitForServiceToBeReady(ctx context.Context) error {
	sm.mu.Lock()
	services := append([]*serviceWrapper(nil), sm.services...)
	sm.mu.Unlock()

	for _, sw := range services {
		select {
		case <-sw.readyCh:
			sm.logger.Infof("Service %s is ready", sw.name)
		case <-ctx.Done():
			return errors.NewServiceUnavailableError("service %s did not become ready", sw.name, ctx.Err())
		}
	}

	return nil
}

// ServicesNotReady lists the services that have not closed their ready channel yet.
func (sm *ServiceManager) ServicesNotReady() []string {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var notReady []string

	for _, sw := range sm.services {
		select {
		case <-sw.readyCh:
		default:
			notReady = append(notReady, sw.name)
		}
	}

	return notReady
}

func (sm *ServiceManager) ForceShutdown() {
	sm.cancelFunc()
}

// Wait blocks until every service has returned, then stops them in reverse
// order. Cancellation is a clean shutdown, any other error is returned.
func (sm *ServiceManager) Wait() error {
	err := sm.g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		sm.logger.Errorf("Service failed: %v", err)
	}

	sm.cancelFunc()

	sm.mu.Lock()
	services := append([]*serviceWrapper(nil), sm.services...)
	sm.mu.Unlock()

	for i := len(services) - 1; i >= 0; i-- {
		sw := services[i]

		stopCtx, stopCancel := context.WithTimeout(context.Background(), sm.stopTimeout)

		if stopErr := sw.instance.Stop(stopCtx); stopErr != nil {
			sm.logger.Warnf("[%s] failed to stop service: %v", sw.name, stopErr)
		} else {
			sm.logger.Infof("[%s] service stopped", sw.name)
		}

		stopCancel()
	}

	sm.logger.Infof("All services stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// HealthHandler aggregates the health of every registered service.
func (sm *ServiceManager) HealthHandler(ctx context.Context, checkLiveness bool) (int, string, error) {
	sm.mu.Lock()
	checks := make([]health.Check, 0, len(sm.services))

	for _, sw := range sm.services {
		checks = append(checks, health.Check{Name: sw.name, Check: sw.instance.Health})
	}
	sm.mu.Unlock()

	return health.CheckAll(ctx, checkLiveness, checks)
}
