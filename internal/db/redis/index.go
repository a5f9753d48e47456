package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/omnisearch/internal/db"
)

// CreateIndex creates an FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Key: def.Name, Err: err}
	}
	return nil
}

// DropIndex removes an FT index by name.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Key: name, Err: err}
	}
	return nil
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Key: name, Err: err}
	}
	return true, nil
}

// buildCreateArgs renders the FT.CREATE arguments after the command name.
func buildCreateArgs(idx *db.IndexDefinition) ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid index definition: %w", err)
	}

	storage := idx.StorageType
	if storage == "" {
		storage = db.StorageHash
	}
	args := []string{idx.Name, "ON", string(storage)}

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}

	args = append(args, "SCHEMA")
	for i := range idx.Fields {
		args = append(args, buildFieldArgs(&idx.Fields[i])...)
	}
	return args, nil
}

// buildFieldArgs renders one validated schema field.
func buildFieldArgs(f *db.IndexField) []string {
	args := []string{f.Name, f.Type.String()}

	switch f.Type {
	case db.IndexFieldText:
		if f.Weight > 0 && f.Weight != 1 {
			args = append(args, "WEIGHT", strconv.FormatFloat(f.Weight, 'f', -1, 64))
		}
	case db.IndexFieldTag:
		if f.TagSeparator != "" {
			args = append(args, "SEPARATOR", f.TagSeparator)
		}
		if f.TagCaseSensitive {
			args = append(args, "CASESENSITIVE")
		}
	case db.IndexFieldVector:
		return append(args, buildVectorArgs(f.Vector)...)
	}

	if f.Sortable {
		args = append(args, "SORTABLE")
	}
	return args
}

// buildVectorArgs renders "<algo> <nargs> <attr value>..." for a VECTOR field.
func buildVectorArgs(v *db.VectorOptions) []string {
	algo := v.Algorithm
	if algo == "" {
		algo = db.VectorFlat
	}
	distance := v.Distance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(v.Dim),
		"DISTANCE_METRIC", string(distance),
	}
	optional := func(name string, value int) {
		if value > 0 {
			attrs = append(attrs, name, strconv.Itoa(value))
		}
	}
	if algo == db.VectorHNSW {
		optional("M", v.M)
		optional("EF_CONSTRUCTION", v.EFConstruct)
	} else {
		optional("BLOCK_SIZE", v.BlockSize)
	}

	return append([]string{string(algo), strconv.Itoa(len(attrs))}, attrs...)
}
