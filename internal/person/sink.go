package person

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/gorm"
	mongoadapter "github.com/tigerroll/chunkflow/pkg/batch/adapter/database/mongo"
	"github.com/tigerroll/chunkflow/pkg/batch/adapter/database/sqldb"
	"github.com/tigerroll/chunkflow/pkg/batch/component/migration"
	"github.com/tigerroll/chunkflow/pkg/batch/component/step/writer"
	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
	"github.com/tigerroll/chunkflow/pkg/batch/core/tx"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// Finder lists the stored people.
type Finder interface {
	FindAll(ctx context.Context) ([]Person, error)
}

// SQLFinder reads the people table.
type SQLFinder struct {
	DB *sql.DB
}

// FindAll implements Finder.
func (f SQLFinder) FindAll(ctx context.Context) ([]Person, error) {
	rows, err := f.DB.QueryContext(ctx, "SELECT first_name, last_name FROM people")
	if err != nil {
		return nil, fmt.Errorf("failed to query people: %w", err)
	}
	defer rows.Close()

	var people []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.FirstName, &p.LastName); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// MongoFinder reads the people collection.
type MongoFinder struct {
	Collection *mongo.Collection
}

// FindAll implements Finder.
func (f MongoFinder) FindAll(ctx context.Context) ([]Person, error) {
	cursor, err := f.Collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query people: %w", err)
	}
	var people []Person
	if err := cursor.All(ctx, &people); err != nil {
		return nil, fmt.Errorf("failed to decode people: %w", err)
	}
	return people, nil
}

// Sink bundles the writer of step1 with the transaction manager its chunks commit through.
type Sink struct {
	Writer    port.ItemWriter[Person]
	TxManager tx.TransactionManager
	Finder    Finder
	// DB is the SQL sink's pool; nil for MongoDB.
	DB *sql.DB
	// Conn is the SQL sink's connection; nil for MongoDB.
	Conn database.DBConnection

	closers []func(ctx context.Context) error
}

// Close releases the connections the sink opened itself. Connections owned by a resolver are left open.
func (s *Sink) Close(ctx context.Context) error {
	var result error
	for _, c := range s.closers {
		if err := c(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.closers = nil
	return result
}

// OpenSink opens the sink described by sinkCfg.
//
// SQL datasources with driver "gorm" are resolved through resolver; driver "sql" opens a
// database/sql pool owned by the sink. MongoDB datasources get their own client.
func OpenSink(ctx context.Context, cfg *config.Config, sinkCfg SinkConfig, resolver database.DBConnectionResolver) (*Sink, error) {
	dbCfg, err := dbconfig.Lookup(cfg, sinkCfg.Datasource)
	if err != nil {
		return nil, exception.NewConfigurationError("person", err.Error())
	}

	switch sinkCfg.Type {
	case SinkMongo:
		if dbCfg.Type != mongoadapter.DBType {
			return nil, exception.NewConfigurationError("person", fmt.Sprintf("datasource '%s' is %s, the mongodb sink needs a mongodb datasource", sinkCfg.Datasource, dbCfg.Type))
		}
		return openMongoSink(ctx, dbCfg, sinkCfg)
	case SinkSQL, "":
		return openSQLSink(ctx, dbCfg, sinkCfg, resolver)
	default:
		return nil, exception.NewConfigurationError("person", fmt.Sprintf("unknown sink type '%s'", sinkCfg.Type))
	}
}

func openSQLSink(ctx context.Context, dbCfg dbconfig.DatabaseConfig, sinkCfg SinkConfig, resolver database.DBConnectionResolver) (*Sink, error) {
	statement := sinkCfg.SQL
	if statement == "" {
		statement = DefaultInsertSQL
	}
	w, err := writer.NewNamedParameterSqlWriter[Person]("personItemWriter", statement)
	if err != nil {
		return nil, err
	}

	sink := &Sink{Writer: w}
	switch dbCfg.DriverOrDefault() {
	case dbconfig.DriverSQL:
		conn, err := sqldb.Open(ctx, sinkCfg.Datasource, dbCfg)
		if err != nil {
			return nil, err
		}
		sink.Conn = conn
		sink.TxManager = sqldb.NewTransactionManagerFor(conn)
		sink.closers = append(sink.closers, func(context.Context) error { return conn.Close() })
	case dbconfig.DriverGorm:
		if resolver == nil {
			return nil, exception.NewConfigurationError("person", "a gorm datasource needs the database adapter module")
		}
		conn, err := resolver.ResolveDBConnection(ctx, sinkCfg.Datasource)
		if err != nil {
			return nil, err
		}
		sink.Conn = conn
		sink.TxManager = gormadapter.NewGormTransactionManager(resolver, sinkCfg.Datasource)
	default:
		return nil, exception.NewConfigurationError("person", fmt.Sprintf("unknown driver '%s' for datasource '%s'", dbCfg.Driver, sinkCfg.Datasource))
	}

	db, err := sink.Conn.GetSQLDB()
	if err != nil {
		_ = sink.Close(ctx)
		return nil, err
	}
	sink.DB = db
	sink.Finder = SQLFinder{DB: db}

	if sinkCfg.AutoMigrate {
		if err := Migrate(ctx, sink.Conn); err != nil {
			_ = sink.Close(ctx)
			return nil, err
		}
	}
	return sink, nil
}

func openMongoSink(ctx context.Context, dbCfg dbconfig.DatabaseConfig, sinkCfg SinkConfig) (*Sink, error) {
	client, err := mongoadapter.Connect(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	collectionName := sinkCfg.Collection
	if collectionName == "" {
		collectionName = "people"
	}
	collection := client.Database(dbCfg.Database).Collection(collectionName)

	w, err := writer.NewMongoItemWriter[Person]("personItemWriter", collection)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &Sink{
		Writer:    w,
		TxManager: NewMongoTransactionManager(client, sinkCfg),
		Finder:    MongoFinder{Collection: collection},
		closers:   []func(ctx context.Context) error{client.Disconnect},
	}, nil
}

// NewMongoTransactionManager creates the chunk transaction manager of a MongoDB sink.
// Without session transactions a failing InsertMany can leave part of a chunk stored.
func NewMongoTransactionManager(client *mongo.Client, sinkCfg SinkConfig) *mongoadapter.TransactionManager {
	if !sinkCfg.Transactional {
		logger.Warnf("MongoDB sink '%s' runs without transactions: a failed chunk may be partially stored. Set transactional: true on a replica set for atomic chunks.", sinkCfg.Datasource)
	}
	return mongoadapter.NewTransactionManager(client, sinkCfg.Transactional)
}

// Migrate creates the people table on conn.
func Migrate(ctx context.Context, conn database.DBConnection) error {
	path, err := MigrationsPath(conn.Type())
	if err != nil {
		return err
	}
	logger.Infof("Migrating people schema on datasource '%s'.", conn.Name())
	return migration.NewMigrator(conn).Up(ctx, MigrationsFS(), path, MigrationsTable)
}

// MigrateSink creates the people table of the configured SQL sink. A MongoDB sink needs no schema.
func MigrateSink(ctx context.Context, cfg *config.Config, resolver database.DBConnectionResolver) error {
	appCfg, err := LoadAppConfig(cfg)
	if err != nil {
		return err
	}
	sinkCfg := appCfg.Import.Sink
	if sinkCfg.Type == SinkMongo {
		logger.Infof("Sink '%s' is a mongodb collection; nothing to migrate.", sinkCfg.Datasource)
		return nil
	}
	sinkCfg.AutoMigrate = true
	sink, err := OpenSink(ctx, cfg, sinkCfg, resolver)
	if err != nil {
		return err
	}
	return sink.Close(ctx)
}
