// Package discovery provides Consul-based service registration and
// coordinator lookup.
package discovery

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/hashicorp/consul/api"

	"github.com/insightgrid/platform/config"
	"github.com/insightgrid/platform/domain/collaborator"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/shared/common"
)

// Registrar registers this service instance with Consul and keeps the
// registration handle for deregistration on shutdown.
type Registrar struct {
	client    *api.Client
	config    config.DiscoveryConfig
	logger    *logging.Logger
	serviceID string
}

// NewRegistrar creates a Consul registrar.
func NewRegistrar(cfg config.DiscoveryConfig, logger *logging.Logger) (*Registrar, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = cfg.Address

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, common.WrapError(err, common.ErrCodeExternalService, "failed to create Consul client")
	}

	return &Registrar{
		client: client,
		config: cfg,
		logger: logger.WithComponent("discovery"),
	}, nil
}

// Register registers the service with an HTTP health check.
func (r *Registrar) Register(serviceName, port string) error {
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return common.WrapError(err, common.ErrCodeInvalidInput, "invalid service port")
	}

	r.serviceID = fmt.Sprintf("%s-%s-%s", serviceName, r.config.ServiceAddress, port)

	registration := &api.AgentServiceRegistration{
		ID:      r.serviceID,
		Name:    serviceName,
		Address: r.config.ServiceAddress,
		Port:    portNum,
		Tags:    []string{"data-mapping", "pipeline"},
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/health", r.config.ServiceAddress, portNum),
			Interval:                       r.config.CheckInterval.String(),
			Timeout:                        r.config.CheckTimeout.String(),
			DeregisterCriticalServiceAfter: "1m",
		},
	}

	if err := r.client.Agent().ServiceRegister(registration); err != nil {
		return common.WrapError(err, common.ErrCodeExternalService, "failed to register service with Consul")
	}

	r.logger.Info("Service registered with Consul",
		logging.String("service_id", r.serviceID),
		logging.String("address", r.config.ServiceAddress),
		logging.Int("port", portNum))

	return nil
}

// Deregister removes the service registration.
func (r *Registrar) Deregister() error {
	if r.serviceID == "" {
		return nil
	}
	if err := r.client.Agent().ServiceDeregister(r.serviceID); err != nil {
		return common.WrapError(err, common.ErrCodeExternalService, "failed to deregister service from Consul")
	}
	r.logger.Info("Service deregistered from Consul",
		logging.String("service_id", r.serviceID))
	return nil
}

// CoordinatorFactory builds a saga coordinator client at a resolved base URL.
type CoordinatorFactory func(baseURL string) collaborator.SagaCoordinator

// ConsulLocator resolves the saga coordinator through Consul health
// queries. Clients are cached per resolved address so circuit breaker
// state survives across lookups.
type ConsulLocator struct {
	client      *api.Client
	serviceName string
	factory     CoordinatorFactory
	logger      *logging.Logger

	mu      sync.Mutex
	clients map[string]collaborator.SagaCoordinator
}

// NewConsulLocator creates a coordinator locator backed by Consul.
func NewConsulLocator(cfg config.DiscoveryConfig, factory CoordinatorFactory, logger *logging.Logger) (*ConsulLocator, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = cfg.Address

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, common.WrapError(err, common.ErrCodeExternalService, "failed to create Consul client")
	}

	return &ConsulLocator{
		client:      client,
		serviceName: cfg.CoordinatorService,
		factory:     factory,
		logger:      logger.WithComponent("coordinator_locator"),
		clients:     make(map[string]collaborator.SagaCoordinator),
	}, nil
}

// Locate resolves a healthy coordinator instance.
func (l *ConsulLocator) Locate(ctx context.Context) (collaborator.SagaCoordinator, error) {
	queryOptions := (&api.QueryOptions{}).WithContext(ctx)

	entries, _, err := l.client.Health().Service(l.serviceName, "", true, queryOptions)
	if err != nil {
		return nil, common.WrapError(err, common.ErrCodeCollaboratorUnavailable,
			fmt.Sprintf("failed to query Consul for %s", l.serviceName))
	}
	if len(entries) == 0 {
		return nil, common.NewAppError(common.ErrCodeCollaboratorUnavailable,
			fmt.Sprintf("no healthy instances of %s", l.serviceName))
	}

	service := entries[0].Service
	address := service.Address
	if address == "" {
		address = entries[0].Node.Address
	}
	baseURL := fmt.Sprintf("http://%s:%d", address, service.Port)

	l.mu.Lock()
	defer l.mu.Unlock()

	if coordinator, ok := l.clients[baseURL]; ok {
		return coordinator, nil
	}

	l.logger.Debug("Resolved saga coordinator",
		logging.String("service", l.serviceName),
		logging.String("base_url", baseURL))

	coordinator := l.factory(baseURL)
	l.clients[baseURL] = coordinator
	return coordinator, nil
}
