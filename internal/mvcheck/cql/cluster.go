package cql

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gocql/gocql"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/mvcheck/internal/common/mverrors"
	"github.com/armadaproject/mvcheck/internal/mvcheck/model"
)

// ConnectConfig holds the driver settings shared by every session the checker opens.
type ConnectConfig struct {
	// Addresses of every cluster member, in cluster order.
	Addresses []string
	// Per request timeout.
	Timeout time.Duration
	// Timeout for establishing a connection.
	ConnectTimeout time.Duration
	// Rows fetched per page by full table reads.
	PageSize int
	// Connection attempts back off exponentially starting at RetryInterval until MaxElapsed has passed.
	// A MaxElapsed of zero means DefaultMaxElapsed; connecting never retries forever.
	RetryInterval time.Duration
	MaxElapsed    time.Duration
}

// NodeSession is a session that only ever talks to Endpoint.
type NodeSession struct {
	Endpoint model.NodeEndpoint
	Session  Session
}

// Cluster holds a coordinator session that may route requests to any member, plus one session
// pinned to each member. Reads through a pinned session at consistency ONE observe exactly what
// that replica holds.
type Cluster struct {
	Coordinator Session
	Nodes       []NodeSession
}

// Endpoints returns the members in cluster order.
func (c *Cluster) Endpoints() []model.NodeEndpoint {
	endpoints := make([]model.NodeEndpoint, len(c.Nodes))
	for i, n := range c.Nodes {
		endpoints[i] = n.Endpoint
	}
	return endpoints
}

func (c *Cluster) Close() {
	if c.Coordinator != nil {
		c.Coordinator.Close()
	}
	for _, n := range c.Nodes {
		if n.Session != nil {
			n.Session.Close()
		}
	}
}

const DefaultMaxElapsed = time.Minute

// Connector opens the sessions making up a Cluster.
type Connector struct {
	config     ConnectConfig
	newSession func(cfg *gocql.ClusterConfig) (Session, error)
	lookupHost func(host string) ([]string, error)
}

func NewConnector(config ConnectConfig) *Connector {
	return &Connector{
		config: config,
		newSession: func(cfg *gocql.ClusterConfig) (Session, error) {
			return newGocqlSession(cfg, config.PageSize)
		},
		lookupHost: net.LookupHost,
	}
}

// Connect opens the coordinator session and one pinned session per member. Failing to reach any of
// them, after backing off, is returned as an error: there's nothing useful the checker can do
// without a session to every replica.
func (c *Connector) Connect(ctx context.Context) (*Cluster, error) {
	if len(c.config.Addresses) == 0 {
		return nil, errors.WithStack(&mverrors.ErrInvalidArgument{
			Name:    "nodes",
			Value:   c.config.Addresses,
			Message: "at least one node address is required",
		})
	}

	coordinator, err := c.connect(ctx, c.config.Addresses[0], func() (*gocql.ClusterConfig, error) {
		return c.coordinatorConfig(), nil
	})
	if err != nil {
		return nil, err
	}
	cluster := &Cluster{
		Coordinator: coordinator,
		Nodes:       make([]NodeSession, len(c.config.Addresses)),
	}

	var mu sync.Mutex
	var result *multierror.Error
	wg := sync.WaitGroup{}
	for i, endpoint := range model.NodeEndpoints(c.config.Addresses) {
		wg.Add(1)
		go func(i int, endpoint model.NodeEndpoint) {
			defer wg.Done()
			session, err := c.connect(ctx, endpoint.Address, func() (*gocql.ClusterConfig, error) {
				return c.nodeConfig(endpoint.Address)
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result = multierror.Append(result, err)
				return
			}
			cluster.Nodes[i] = NodeSession{Endpoint: endpoint, Session: session}
		}(i, endpoint)
	}
	wg.Wait()

	if err := result.ErrorOrNil(); err != nil {
		cluster.Close()
		return nil, err
	}
	return cluster, nil
}

// connect builds the driver config with newConfig and opens a session from it, backing off between
// attempts. Building the config is retried too, since it may involve resolving the address.
func (c *Connector) connect(ctx context.Context, address string, newConfig func() (*gocql.ClusterConfig, error)) (Session, error) {
	var session Session
	operation := func() error {
		cfg, err := newConfig()
		if err != nil {
			return err
		}
		session, err = c.newSession(cfg)
		return err
	}
	notify := func(err error, next time.Duration) {
		log.WithError(err).Warnf("Failed to connect to %s, retrying in %s", address, next.Round(time.Millisecond))
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(c.newBackOff(), ctx), notify); err != nil {
		return nil, errors.WithStack(&mverrors.ErrConnectionFailed{Address: address, Cause: err})
	}
	return session, nil
}

func (c *Connector) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if c.config.RetryInterval > 0 {
		b.InitialInterval = c.config.RetryInterval
	}
	b.MaxElapsedTime = DefaultMaxElapsed
	if c.config.MaxElapsed > 0 {
		b.MaxElapsedTime = c.config.MaxElapsed
	}
	return b
}

func (c *Connector) baseConfig(addresses ...string) *gocql.ClusterConfig {
	cfg := gocql.NewCluster(addresses...)
	if c.config.Timeout > 0 {
		cfg.Timeout = c.config.Timeout
	}
	if c.config.ConnectTimeout > 0 {
		cfg.ConnectTimeout = c.config.ConnectTimeout
	}
	return cfg
}

func (c *Connector) coordinatorConfig() *gocql.ClusterConfig {
	cfg := c.baseConfig(c.config.Addresses...)
	cfg.Consistency = gocql.Quorum
	cfg.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cfg
}

// nodeConfig returns a config whose sessions only ever talk to address. The address is resolved here
// rather than by gocql.WhiteListHostFilter, which panics on names it can't resolve.
func (c *Connector) nodeConfig(address string) (*gocql.ClusterConfig, error) {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		// gocql accepts addresses without a port.
		host = address
	}
	resolved, err := c.lookupHost(host)
	if err != nil {
		return nil, errors.WithMessagef(err, "error resolving %s", host)
	}
	var ips []net.IP
	for _, r := range resolved {
		if ip := net.ParseIP(r); ip != nil {
			ips = append(ips, ip)
		}
	}
	if len(ips) == 0 {
		return nil, errors.Errorf("%s did not resolve to an IP address", host)
	}

	cfg := c.baseConfig(address)
	cfg.Consistency = gocql.One
	cfg.HostFilter = gocql.HostFilterFunc(func(h *gocql.HostInfo) bool {
		for _, ip := range ips {
			if ip.Equal(h.ConnectAddress()) {
				return true
			}
		}
		return false
	})
	return cfg, nil
}
