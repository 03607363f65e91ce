package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func driverConnector(cfg Config) connector {
	return func(ctx context.Context) (queryRunner, error) {
		driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
		if err != nil {
			return nil, fmt.Errorf("create driver: %w", err)
		}
		if err := driver.VerifyConnectivity(ctx); err != nil {
			_ = driver.Close(ctx)
			return nil, fmt.Errorf("verify connectivity: %w", err)
		}
		return &driverRunner{driver: driver, database: cfg.Database}, nil
	}
}

func (r *driverRunner) Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithReadersRouting()}
	if r.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(r.database))
	}

	result, err := neo4j.ExecuteQuery(ctx, r.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(result.Records))
	for _, rec := range result.Records {
		rows = append(rows, rec.AsMap())
	}
	return rows, nil
}

func (r *driverRunner) Verify(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

func (r *driverRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}
