package main

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/docquery"
	"github.com/hupe1980/docquery/blobstore"
	miniostore "github.com/hupe1980/docquery/blobstore/minio"
	s3store "github.com/hupe1980/docquery/blobstore/s3"
	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/internal/config"
	"github.com/hupe1980/docquery/internal/docio"
	"github.com/hupe1980/docquery/value"
)

// collection loads the configured source and builds the declared indexes.
func (a *app) collection(ctx context.Context) (*docquery.Collection, error) {
	if a.cfg.Source == "" {
		return nil, errors.New("no source: set --source or DOCQUERY_SOURCE")
	}
	loc, err := blobstore.ParseLocation(a.cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}

	descs := make([]index.Descriptor, 0, len(a.cfg.Indexes))
	for _, decl := range a.cfg.Indexes {
		d, err := parseIndex(decl)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}

	store, name, err := openStore(ctx, a.cfg, loc)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var docs []value.Document
	if isPrefix(loc.Name) {
		docs, err = docio.LoadPrefix(ctx, store, name)
	} else {
		docs, err = docio.Load(ctx, store, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", a.cfg.Source, err)
	}

	collName := loc.Name
	if collName == "" {
		collName = loc.Bucket
	}
	coll := docquery.NewCollection(collectionName(collName),
		docquery.WithLogger(a.logger),
		docquery.WithMetricsCollector(a.metrics),
	)
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("insert %s: %w", a.cfg.Source, err)
	}
	if len(descs) > 0 {
		if _, err := coll.EnsureIndexes(ctx, descs...); err != nil {
			return nil, err
		}
	}

	a.logger.Info("collection loaded",
		"source", a.cfg.Source,
		"documents", coll.Len(),
		"indexes", len(descs),
		"duration", time.Since(start),
	)
	return coll, nil
}

// isPrefix reports whether a source names a directory or key prefix, such as
// "dumps/" or "s3://bucket/dumps/", rather than a single dump.
func isPrefix(name string) bool {
	return name == "" || strings.HasSuffix(name, "/") || strings.HasSuffix(name, string(filepath.Separator))
}

// openStore returns the blob store holding loc and the blob name or prefix
// within it.
func openStore(ctx context.Context, cfg *config.Config, loc blobstore.Location) (blobstore.BlobStore, string, error) {
	switch loc.Scheme {
	case "":
		dir, file := filepath.Split(loc.Name)
		if dir == "" {
			dir = "."
		}
		return blobstore.NewLocalStore(dir), file, nil
	case "s3":
		store, err := s3store.New(ctx, loc.Bucket,
			s3store.WithRegion(cfg.S3.Region),
			s3store.WithEndpoint(cfg.S3.Endpoint),
		)
		if err != nil {
			return nil, "", err
		}
		return store, loc.Name, nil
	case "minio":
		store, err := miniostore.Dial(cfg.MinIO, loc.Bucket, "")
		if err != nil {
			return nil, "", err
		}
		return store, loc.Name, nil
	default:
		return nil, "", fmt.Errorf("unsupported source scheme %q", loc.Scheme)
	}
}

// collectionName derives a collection name from a blob name or prefix, e.g.
// "dumps/users.jsonl.zst" and "dumps/users/" both become "users".
func collectionName(name string) string {
	base := path.Base(filepath.ToSlash(name))
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}

// parseIndex parses an index declaration kind:field1,field2[:option].
// Options are unique for hash and skiplist indexes, substrings for fulltext
// and geojson for single-field geo indexes. The kind geo picks geo1 or geo2
// from the number of fields.
func parseIndex(decl string) (index.Descriptor, error) {
	parts := strings.Split(decl, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[1] == "" {
		return index.Descriptor{}, fmt.Errorf("invalid index declaration %q: want kind:field1,field2[:option]", decl)
	}

	var d index.Descriptor
	d.Fields = strings.Split(parts[1], ",")
	for i := range d.Fields {
		d.Fields[i] = strings.TrimSpace(d.Fields[i])
	}

	kind := strings.ToLower(strings.TrimSpace(parts[0]))
	if kind == "geo" {
		d.Kind = index.KindGeo1
		if len(d.Fields) == 2 {
			d.Kind = index.KindGeo2
		}
	} else {
		k, err := index.ParseKind(kind)
		if err != nil {
			return index.Descriptor{}, fmt.Errorf("invalid index declaration %q: %w", decl, err)
		}
		d.Kind = k
	}

	if len(parts) == 3 {
		switch opt := strings.ToLower(parts[2]); {
		case opt == "unique" && (d.Kind == index.KindHash || d.Kind == index.KindSkiplist):
			d.Unique = true
		case opt == "substrings" && d.Kind == index.KindFulltext:
			d.Substrings = true
		case opt == "geojson" && d.Kind == index.KindGeo1:
			d.GeoJSON = true
		default:
			return index.Descriptor{}, fmt.Errorf("invalid index declaration %q: option %q does not apply to %s", decl, opt, d.Kind)
		}
	}
	return d, nil
}
