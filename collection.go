package docquery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/index/hash"
	"github.com/hupe1980/docquery/model"
	"github.com/hupe1980/docquery/optimizer"
	"github.com/hupe1980/docquery/value"
)

// PrimaryIndexID is the id of the primary index on _key every collection
// carries.
const PrimaryIndexID index.ID = 0

// Collection is an in-memory document collection with a primary index on
// _key and any number of secondary indexes.
//
// Collection is safe for concurrent use. Queries run inside a read scope
// holding the shared lock; writes and index builds hold the exclusive lock.
type Collection struct {
	name      string
	opts      options
	logger    *Logger
	optimiser *optimizer.Optimiser

	mu        sync.RWMutex
	docs      map[model.RowID]value.Document
	rows      []model.RowID // ascending, which is insertion order
	nextRow   model.RowID
	primary   *hash.Index
	indexes   []index.Index // primary first, then in creation order
	nextIndex index.ID
	paths     map[string]int // attribute path -> number of documents having it
}

// NewCollection returns an empty collection.
func NewCollection(name string, optFns ...Option) *Collection {
	opts := applyOptions(optFns)
	logger := opts.logger.WithCollection(name)

	primary := hash.New(index.Descriptor{
		ID:     PrimaryIndexID,
		Kind:   index.KindPrimary,
		Fields: []string{model.KeyAttribute},
		Unique: true,
	})

	return &Collection{
		name:      name,
		opts:      opts,
		logger:    logger,
		optimiser: optimizer.New(optimizer.WithLogger(logger.Logger)),
		docs:      make(map[model.RowID]value.Document),
		primary:   primary,
		indexes:   []index.Index{primary},
		nextIndex: PrimaryIndexID + 1,
		paths:     make(map[string]int),
	}
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Len returns the number of stored documents.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

// read runs fn inside a read scope. The shared lock is released on every
// path out of fn.
func (c *Collection) read(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fn()
}

// Insert stores a copy of doc and returns its key. A document without _key
// gets a generated one; a _key that is not a non-empty string is rejected.
func (c *Collection) Insert(ctx context.Context, doc value.Document) (model.Key, error) {
	start := time.Now()

	key, err := func() (model.Key, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.insertLocked(doc)
	}()

	c.opts.metricsCollector.RecordInsert(time.Since(start), err)
	c.logger.LogInsert(ctx, string(key), err)
	return key, err
}

// InsertMany stores copies of docs under a single lock acquisition. Failed
// documents leave an empty key at their position; their errors are joined.
// Cancellation stops the batch and returns the keys stored so far.
func (c *Collection) InsertMany(ctx context.Context, docs []value.Document) ([]model.Key, error) {
	start := time.Now()
	keys := make([]model.Key, len(docs))

	c.mu.Lock()
	var errs []error
	failed := 0
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			failed += len(docs) - i
			errs = append(errs, err)
			break
		}
		key, err := c.insertLocked(doc)
		if err != nil {
			failed++
			errs = append(errs, fmt.Errorf("document %d: %w", i, err))
			continue
		}
		keys[i] = key
	}
	c.mu.Unlock()

	c.opts.metricsCollector.RecordBatchInsert(len(docs), failed, time.Since(start))
	c.logger.LogBatchInsert(ctx, len(docs), failed)
	return keys, errors.Join(errs...)
}

func (c *Collection) insertLocked(doc value.Document) (model.Key, error) {
	doc = doc.Clone()
	if doc == nil {
		doc = value.Document{}
	}

	kv, ok := doc[model.KeyAttribute]
	if !ok {
		kv = value.String(c.opts.keyGenerator())
		doc[model.KeyAttribute] = kv
	}
	key, isString := kv.AsString()
	if !isString || key == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string", ErrBadParameter, model.KeyAttribute)
	}

	id := c.nextRow
	for i, ix := range c.indexes {
		if err := ix.Insert(id, doc); err != nil {
			for _, done := range c.indexes[:i] {
				done.Remove(id, doc)
			}
			return "", translateError(err)
		}
	}

	c.nextRow++
	c.docs[id] = doc
	c.rows = append(c.rows, id)
	for _, p := range doc.Paths() {
		c.paths[p]++
	}
	return model.Key(key), nil
}

// Remove deletes the document with the given key.
func (c *Collection) Remove(ctx context.Context, key model.Key) error {
	start := time.Now()

	err := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.mu.Lock()
		defer c.mu.Unlock()

		id, ok := c.rowOf(key)
		if !ok {
			return fmt.Errorf("%w: %q", ErrDocumentNotFound, key)
		}
		doc := c.docs[id]
		for _, ix := range c.indexes {
			ix.Remove(id, doc)
		}
		delete(c.docs, id)
		if i, found := slices.BinarySearch(c.rows, id); found {
			c.rows = slices.Delete(c.rows, i, i+1)
		}
		for _, p := range doc.Paths() {
			if c.paths[p]--; c.paths[p] <= 0 {
				delete(c.paths, p)
			}
		}
		return nil
	}()

	c.opts.metricsCollector.RecordRemove(time.Since(start), err)
	c.logger.LogRemove(ctx, string(key), err)
	return err
}

// Document returns a copy of the document with the given key.
func (c *Collection) Document(ctx context.Context, key model.Key) (value.Document, error) {
	var doc value.Document
	err := c.read(ctx, func() error {
		id, ok := c.rowOf(key)
		if !ok {
			return fmt.Errorf("%w: %q", ErrDocumentNotFound, key)
		}
		doc = c.docs[id].Clone()
		return nil
	})
	return doc, err
}

// rowOf resolves a key through the primary index. Callers hold the lock.
func (c *Collection) rowOf(key model.Key) (model.RowID, bool) {
	ids, err := c.primary.LookupValues(context.Background(), []value.Value{value.String(string(key))})
	if err != nil || len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}

// documents resolves row ids to document copies. An id without a document
// means an index is out of sync with the collection.
func (c *Collection) documents(ids []model.RowID) ([]value.Document, error) {
	out := make([]value.Document, len(ids))
	for i, id := range ids {
		doc, ok := c.docs[id]
		if !ok {
			c.logger.Error("index refers to a missing document", "row", id.String())
			return nil, fmt.Errorf("%w: no document for %s", ErrInternal, id)
		}
		out[i] = doc.Clone()
	}
	return out, nil
}

// window builds a windowed result from matching row ids.
func (c *Collection) window(ids []model.RowID, skip int, limit uint) (*Result, error) {
	s, e := Window(len(ids), skip, limit)
	docs, err := c.documents(ids[s:e])
	if err != nil {
		return nil, err
	}
	return &Result{Documents: docs, Total: len(ids), Count: len(docs)}, nil
}

// checkPaths returns ErrElementNotFound if no stored document has one of
// the paths.
func (c *Collection) checkPaths(paths ...string) error {
	for _, p := range paths {
		if c.paths[p] == 0 {
			return fmt.Errorf("%w: attribute %q", ErrElementNotFound, p)
		}
	}
	return nil
}
