package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/diwise/metadata-instance-store/internal/pkg/infrastructure/metrics"
	"github.com/diwise/metadata-instance-store/internal/pkg/infrastructure/repository"
	"github.com/diwise/metadata-instance-store/pkg/datamodels/governance"
	"github.com/diwise/metadata-instance-store/pkg/metadata/beans"
	"github.com/diwise/metadata-instance-store/pkg/metadata/converter"
	"github.com/diwise/metadata-instance-store/pkg/metadata/registry"
	"github.com/diwise/metadata-instance-store/pkg/metadata/typedefs"
	"github.com/diwise/metadata-instance-store/pkg/metadata/types/instances"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
)

const (
	appName string = "archive-check"
)

func main() {
	appVersion := buildinfo.SourceVersion()
	flags := parseExternalConfig(defaultFlags())

	ctx, log, cleanup := o11y.Init(context.Background(), appName, appVersion, flags[logFormat])
	defer cleanup()

	reg, err := newRegistry(flags[catalogPath])
	if err != nil {
		log.Error("failed to load type catalog", "err", err.Error())
		os.Exit(1)
	}

	mappers, err := governance.Mappers()
	if err != nil {
		log.Error("failed to create bean mappers", "err", err.Error())
		os.Exit(1)
	}

	m := metrics.New()

	conv, err := converter.New(reg, mappers, converter.WithAnomalyHandler(m.AnomalyHandler()))
	if err != nil {
		log.Error("failed to create converter", "err", err.Error())
		os.Exit(1)
	}

	entities, err := loadEntities(ctx, flags[archivePath], conv, mappers)
	if err != nil {
		log.Error("failed to load entities", "err", err.Error())
		os.Exit(1)
	}

	log.Debug("number of total entities", "count", len(entities))

	failures := check(ctx, log, conv, m, flags[beanPrefix], entities)

	totals, err := m.Totals()
	if err != nil {
		log.Error("failed to gather totals", "err", err.Error())
		os.Exit(1)
	}

	for _, key := range slices.Sorted(maps.Keys(totals)) {
		fmt.Printf("%s %v\n", key, totals[key])
	}

	if failures > 0 {
		log.Error("archive check failed", slog.Int("failures", failures))
		os.Exit(1)
	}

	log.Info("done checking archive", slog.Int("total", len(entities)))
}

func newRegistry(catalogFile string) (*registry.Registry, error) {
	cat, err := governance.Catalog()
	if err != nil {
		return nil, err
	}

	reg, err := registry.New(registry.WithCatalog(cat))
	if err != nil {
		return nil, err
	}

	if catalogFile == "" {
		return reg, nil
	}

	f, err := os.Open(catalogFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	extra, err := typedefs.LoadCatalog(f)
	if err != nil {
		return nil, err
	}

	return reg, reg.RegisterCatalog(extra)
}

func loadEntities(ctx context.Context, archiveFile string, conv *converter.Converter, mappers *beans.MapperSet) ([]*instances.Entity, error) {
	if archiveFile != "" {
		body, err := os.ReadFile(archiveFile)
		if err != nil {
			return nil, err
		}
		return instances.NewEntitiesFromSlice(body)
	}

	cfg := repository.LoadConfiguration(ctx)
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("either an archive file or POSTGRES_HOST is required")
	}

	repo, closeRepo, err := repository.NewPostgresConnector(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeRepo()

	entities := []*instances.Entity{}

	for _, name := range mappers.Names() {
		m, _ := conv.Mapper(name)
		if m.Kind != beans.KindEntity {
			continue
		}

		found, err := repo.FindEntitiesByType(ctx, m.TypeName)
		if err != nil {
			return nil, err
		}
		entities = append(entities, found...)
	}

	return entities, nil
}

// check converts every entity to its bean and back and returns the number
// of entities that failed to convert or did not survive the round trip
func check(ctx context.Context, log *slog.Logger, conv *converter.Converter, m *metrics.Metrics, prefix string, entities []*instances.Entity) int {
	failures := 0

	for _, entity := range entities {
		l := log.With(slog.String("guid", entity.GUID), slog.String("type", entity.Type.Name))

		beanName := prefix + entity.Type.Name
		if mapper, ok := conv.Mapper(beanName); !ok || mapper.Kind != beans.KindEntity {
			l.Warn("no entity bean for type", "bean", beanName)
			continue
		}

		bean, err := conv.Convert(ctx, entity, nil, beanName)
		m.ConversionDone(beanName, err)
		if err != nil {
			l.Error("failed to convert entity", "err", err.Error())
			failures++
			continue
		}

		reversed, err := conv.Reverse(ctx, bean)
		if err != nil {
			l.Error("failed to reverse bean", "err", err.Error())
			m.RoundTripFailed(beanName)
			failures++
			continue
		}

		if !entity.Equal(reversed) {
			l.Error("entity did not survive a round trip")
			m.RoundTripFailed(beanName)
			failures++
			continue
		}

		l.Debug("entity checked", "bean", beanName)
	}

	return failures
}
