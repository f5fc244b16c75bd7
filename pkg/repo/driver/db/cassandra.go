package db

import (
	"fmt"

	"github.com/gocql/gocql"
	"github.com/spf13/cast"

	"tapandstamp/config"
	"tapandstamp/utilities"
)

const keyspaceSchema = `CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = {'class' : 'SimpleStrategy', 'replication_factor' : %d}`

// newClusterConfig applies the configured consistency and timeouts.
// Lightweight transactions always run at LOCAL_SERIAL.
func newClusterConfig(cfg config.DB) (*gocql.ClusterConfig, error) {
	consistency, err := gocql.ParseConsistencyWrapper(cfg.Consistency)
	if err != nil {
		return nil, fmt.Errorf("db.consistency: %w", err)
	}

	connectTimeout, err := cast.ToDurationE(cfg.ConnectTimeout)
	if err != nil || connectTimeout <= 0 {
		return nil, fmt.Errorf("db.connect_timeout: invalid duration %q", cfg.ConnectTimeout)
	}
	timeout, err := cast.ToDurationE(cfg.Timeout)
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("db.timeout: invalid duration %q", cfg.Timeout)
	}

	cluster := gocql.NewCluster(cfg.Host)
	cluster.Authenticator = gocql.PasswordAuthenticator{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	cluster.Consistency = consistency
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.ConnectTimeout = connectTimeout
	cluster.Timeout = timeout

	return cluster, nil
}

// NewCassandraSession creates the keyspace and tables when missing and returns a keyspace-bound session.
func NewCassandraSession(cfg config.DB) (*gocql.Session, error) {
	log := utilities.NewLoggerWithFields("NewCassandraSession", map[string]interface{}{
		"host":     cfg.Host,
		"keyspace": cfg.Keyspace,
	})

	cluster, err := newClusterConfig(cfg)
	if err != nil {
		return nil, err
	}

	replication := cfg.ReplicationFactor
	if replication <= 0 {
		replication = 1
	}

	bootstrap, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}
	err = bootstrap.Query(fmt.Sprintf(keyspaceSchema, cfg.Keyspace, replication)).Exec()
	bootstrap.Close()
	if err != nil {
		return nil, fmt.Errorf("creating keyspace %s: %w", cfg.Keyspace, err)
	}

	cluster.Keyspace = cfg.Keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}

	if err = createTables(session, cfg.Keyspace); err != nil {
		session.Close()
		return nil, err
	}

	log.Infof("cassandra session ready at %s consistency", cluster.Consistency)

	return session, nil
}

func createTables(session *gocql.Session, keyspace string) error {
	for _, table := range dbTableSchemas {
		createTableCmd := fmt.Sprintf(table, keyspace)
		if err := session.Query(createTableCmd).Exec(); err != nil {
			return fmt.Errorf("failed to exec query for db table creation, CMD: %s: %w", createTableCmd, err)
		}
	}

	return nil
}
