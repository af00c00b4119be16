package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/diwise/metadata-instance-store/pkg/metadata/errors"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/instances"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	host     string
	user     string
	password string
	port     string
	dbname   string
	sslmode  string
}

func LoadConfiguration(ctx context.Context) Config {
	return Config{
		host:     env.GetVariableOrDefault(ctx, "POSTGRES_HOST", ""),
		user:     env.GetVariableOrDefault(ctx, "POSTGRES_USER", ""),
		password: env.GetVariableOrDefault(ctx, "POSTGRES_PASSWORD", ""),
		port:     env.GetVariableOrDefault(ctx, "POSTGRES_PORT", "5432"),
		dbname:   env.GetVariableOrDefault(ctx, "POSTGRES_DBNAME", "diwise"),
		sslmode:  env.GetVariableOrDefault(ctx, "POSTGRES_SSLMODE", "disable"),
	}
}

func (c Config) ConnStr() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.user, c.password, c.host, c.port, c.dbname, c.sslmode)
}

func (c Config) IsConfigured() bool {
	return c.host != ""
}

type postgresConnector struct {
	pool *pgxpool.Pool
}

// NewPostgresConnector connects to the database and creates the tables if
// they do not exist. Instances are stored as json documents.
func NewPostgresConnector(ctx context.Context, cfg Config) (Connector, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.ConnStr())
	if err != nil {
		return nil, nil, err
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	if err = initialize(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return &postgresConnector{pool: pool}, pool.Close, nil
}

// schema stores instance documents as json, not jsonb, so that property
// names are read back in the order they were written
const schema string = `
	CREATE TABLE IF NOT EXISTS md_entities (
		guid      TEXT PRIMARY KEY,
		type_name TEXT NOT NULL,
		version   BIGINT NOT NULL,
		deleted   BOOLEAN NOT NULL DEFAULT FALSE,
		body      JSON NOT NULL
	);
	CREATE INDEX IF NOT EXISTS md_entities_type_idx ON md_entities (type_name);
	CREATE TABLE IF NOT EXISTS md_relationships (
		guid      TEXT PRIMARY KEY,
		type_name TEXT NOT NULL,
		end1      TEXT NOT NULL REFERENCES md_entities(guid) ON DELETE CASCADE,
		end2      TEXT NOT NULL REFERENCES md_entities(guid) ON DELETE CASCADE,
		body      JSON NOT NULL
	);
	CREATE INDEX IF NOT EXISTS md_relationships_end1_idx ON md_relationships (end1);
	CREATE INDEX IF NOT EXISTS md_relationships_end2_idx ON md_relationships (end2);`

func initialize(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

func (p *postgresConnector) AddEntity(ctx context.Context, userID string, entity *instances.Entity) (result *instances.Entity, err error) {
	ctx, span := tracer.Start(ctx, "add-entity")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	e, err := prepareNewEntity(userID, entity)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}

	tag, err := p.pool.Exec(ctx,
		`INSERT INTO md_entities (guid, type_name, version, deleted, body) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (guid) DO NOTHING`,
		e.GUID, e.Type.Name, e.Version, e.IsDeleted(), body,
	)
	if err != nil {
		return nil, err
	}

	if tag.RowsAffected() == 0 {
		return nil, errors.NewAlreadyExistsError(fmt.Sprintf("entity %s already exists", e.GUID))
	}

	logging.GetFromContext(ctx).Debug("entity added", "guid", e.GUID, "type", e.Type.Name)

	return e, nil
}

func (p *postgresConnector) UpdateEntity(ctx context.Context, userID string, entity *instances.Entity) (result *instances.Entity, err error) {
	ctx, span := tracer.Start(ctx, "update-entity")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if entity == nil {
		return nil, errors.NewInvalidParameterError("no entity to update")
	}

	stored, err := p.GetEntity(ctx, entity.GUID)
	if err != nil {
		return nil, err
	}

	e, err := prepareUpdatedEntity(userID, stored, entity)
	if err != nil {
		return nil, err
	}

	if err = p.replaceEntity(ctx, stored.Version, e); err != nil {
		return nil, err
	}

	return e, nil
}

// replaceEntity writes e if the stored row is still at version
func (p *postgresConnector) replaceEntity(ctx context.Context, version int64, e *instances.Entity) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	tag, err := p.pool.Exec(ctx,
		`UPDATE md_entities SET version = $2, deleted = $3, body = $4 WHERE guid = $1 AND version = $5`,
		e.GUID, e.Version, e.IsDeleted(), body, version,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return errors.NewInvalidInstanceError(fmt.Sprintf("entity %s has been updated since version %d", e.GUID, version))
	}

	return nil
}

func (p *postgresConnector) GetEntity(ctx context.Context, guid string) (result *instances.Entity, err error) {
	ctx, span := tracer.Start(ctx, "get-entity", trace.WithAttributes(attribute.String("guid", guid)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	var body []byte

	err = p.pool.QueryRow(ctx, `SELECT body FROM md_entities WHERE guid = $1`, guid).Scan(&body)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NewNotFoundError(fmt.Sprintf("no entity with guid %s", guid))
		}
		return nil, err
	}

	return instances.NewEntityFromJSON(body)
}

func (p *postgresConnector) FindEntitiesByType(ctx context.Context, typeName string) (result []*instances.Entity, err error) {
	ctx, span := tracer.Start(ctx, "find-entities", trace.WithAttributes(attribute.String("type", typeName)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	rows, err := p.pool.Query(ctx,
		`SELECT body FROM md_entities WHERE type_name = $1 AND NOT deleted ORDER BY guid`, typeName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result = []*instances.Entity{}

	for rows.Next() {
		var body []byte
		if err = rows.Scan(&body); err != nil {
			return nil, err
		}

		e, err := instances.NewEntityFromJSON(body)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}

	return result, rows.Err()
}

func (p *postgresConnector) DeleteEntity(ctx context.Context, userID, guid string) (err error) {
	ctx, span := tracer.Start(ctx, "delete-entity", trace.WithAttributes(attribute.String("guid", guid)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	e, err := p.GetEntity(ctx, guid)
	if err != nil {
		return err
	}

	version := e.Version
	if err = e.Delete(userID); err != nil {
		return err
	}

	return p.replaceEntity(ctx, version, e)
}

func (p *postgresConnector) PurgeEntity(ctx context.Context, guid string) (err error) {
	ctx, span := tracer.Start(ctx, "purge-entity", trace.WithAttributes(attribute.String("guid", guid)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	tag, err := p.pool.Exec(ctx, `DELETE FROM md_entities WHERE guid = $1 AND deleted`, guid)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		if _, err = p.GetEntity(ctx, guid); err != nil {
			return err
		}
		return errors.NewInvalidInstanceError(fmt.Sprintf("entity %s must be deleted before it is purged", guid))
	}

	logging.GetFromContext(ctx).Debug("entity purged", "guid", guid)

	return nil
}

func (p *postgresConnector) AddRelationship(ctx context.Context, userID string, relationship *instances.Relationship) (result *instances.Relationship, err error) {
	ctx, span := tracer.Start(ctx, "add-relationship")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	r, err := prepareNewRelationship(userID, relationship)
	if err != nil {
		return nil, err
	}

	for _, guid := range []string{r.EntityOneProxy.GUID, r.EntityTwoProxy.GUID} {
		end, err := p.GetEntity(ctx, guid)
		if err != nil {
			return nil, err
		}
		if err = checkEnd(end, guid); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}

	tag, err := p.pool.Exec(ctx,
		`INSERT INTO md_relationships (guid, type_name, end1, end2, body) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (guid) DO NOTHING`,
		r.GUID, r.Type.Name, r.EntityOneProxy.GUID, r.EntityTwoProxy.GUID, body,
	)
	if err != nil {
		return nil, err
	}

	if tag.RowsAffected() == 0 {
		return nil, errors.NewAlreadyExistsError(fmt.Sprintf("relationship %s already exists", r.GUID))
	}

	return r, nil
}

func (p *postgresConnector) GetRelationship(ctx context.Context, guid string) (result *instances.Relationship, err error) {
	ctx, span := tracer.Start(ctx, "get-relationship", trace.WithAttributes(attribute.String("guid", guid)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	var body []byte

	err = p.pool.QueryRow(ctx, `SELECT body FROM md_relationships WHERE guid = $1`, guid).Scan(&body)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NewNotFoundError(fmt.Sprintf("no relationship with guid %s", guid))
		}
		return nil, err
	}

	return instances.NewRelationshipFromJSON(body)
}

func (p *postgresConnector) GetRelationships(ctx context.Context, entityGUID string) (result []*instances.Relationship, err error) {
	ctx, span := tracer.Start(ctx, "get-relationships", trace.WithAttributes(attribute.String("guid", entityGUID)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	rows, err := p.pool.Query(ctx,
		`SELECT body FROM md_relationships WHERE end1 = $1 OR end2 = $1 ORDER BY guid`, entityGUID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result = []*instances.Relationship{}

	for rows.Next() {
		var body []byte
		if err = rows.Scan(&body); err != nil {
			return nil, err
		}

		r, err := instances.NewRelationshipFromJSON(body)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}

	return result, rows.Err()
}
