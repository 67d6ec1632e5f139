package health

import (
	"fmt"
	"time"

	"github.com/hellofresh/health-go/v5"
	"github.com/hellofresh/health-go/v5/checks/postgres"
	healthRedis "github.com/hellofresh/health-go/v5/checks/redis"
	"github.com/safar/store-mcp/internal/config"
	"github.com/safar/store-mcp/internal/store"
)

const (
	componentName    = "store-mcp"
	componentVersion = "1.0.0"
)

// NewHealthHandler builds the health checker. The store is always checked;
// Postgres and Redis are added when the configuration enables them.
func NewHealthHandler(cfg *config.Config, st store.Store) (*health.Health, error) {
	checks := []health.Config{
		{
			Name:      "store",
			Timeout:   2 * time.Second,
			SkipOnErr: false,
			Check:     st.Ping,
		},
	}

	if cfg.Store.Driver == config.DriverPostgres {
		checks = append(checks, health.Config{
			Name:      "database",
			Timeout:   3 * time.Second,
			SkipOnErr: false,
			Check: postgres.New(postgres.Config{
				DSN: cfg.Database.URL,
			}),
		})
	}

	if cfg.Redis.URL != "" {
		// the cache is optional, so a Redis outage only degrades the service
		checks = append(checks, health.Config{
			Name:      "redis",
			Timeout:   2 * time.Second,
			SkipOnErr: true,
			Check: healthRedis.New(healthRedis.Config{
				DSN: cfg.Redis.URL,
			}),
		})
	}

	h, err := health.New(
		health.WithComponent(health.Component{
			Name:    componentName,
			Version: componentVersion,
		}),
		health.WithSystemInfo(),
		health.WithChecks(checks...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create health instance: %w", err)
	}

	return h, nil
}
