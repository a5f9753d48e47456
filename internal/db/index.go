package db

import (
	"errors"
	"fmt"
)

// StorageType defines the document storage backend for FT indexes.
type StorageType string

// StorageHash stores documents as Redis hashes.
const StorageHash StorageType = "HASH"

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

const (
	// DistanceL2 is Euclidean distance.
	DistanceL2 DistanceMetric = "L2"
	// DistanceIP is inner product distance.
	DistanceIP DistanceMetric = "IP"
	// DistanceCosine is cosine distance.
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorAlgorithm selects the indexing algorithm for vector fields in FT.CREATE.
type VectorAlgorithm string

const (
	// VectorHNSW uses the HNSW algorithm.
	VectorHNSW VectorAlgorithm = "HNSW"
	// VectorFlat uses the FLAT (brute-force) algorithm.
	VectorFlat VectorAlgorithm = "FLAT"
)

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

const (
	// IndexFieldNumeric is a numeric field.
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is a tag field.
	IndexFieldTag
	// IndexFieldText is a full-text field.
	IndexFieldText
	// IndexFieldVector is a vector field.
	IndexFieldVector
)

func (t IndexFieldType) String() string {
	switch t {
	case IndexFieldNumeric:
		return "NUMERIC"
	case IndexFieldTag:
		return "TAG"
	case IndexFieldText:
		return "TEXT"
	case IndexFieldVector:
		return "VECTOR"
	default:
		return fmt.Sprintf("IndexFieldType(%d)", int(t))
	}
}

// VectorOptions configures a VECTOR field. Zero M, EFConstruct and BlockSize
// leave the server defaults.
type VectorOptions struct {
	Algorithm   VectorAlgorithm
	Dim         int
	Distance    DistanceMetric
	M           int // HNSW: max edges per node
	EFConstruct int // HNSW: build-time candidate list size
	BlockSize   int // FLAT: vectors per storage block
}

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name string
	Type IndexFieldType

	// Sortable enables SORTBY on NUMERIC, TAG and TEXT fields.
	Sortable bool

	// Weight scales BM25 relevance of a TEXT field. Zero means 1.
	Weight float64

	TagSeparator     string
	TagCaseSensitive bool

	Vector *VectorOptions
}

// IndexDefinition is a complete FT index definition used by FT.CREATE.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	Fields      []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		seen[f.Name] = true

		if err := f.validate(); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	return nil
}

func (f *IndexField) validate() error {
	if f.Type < IndexFieldNumeric || f.Type > IndexFieldVector {
		return fmt.Errorf("unknown field type %s", f.Type)
	}
	if f.Weight < 0 {
		return errors.New("weight must not be negative")
	}
	if f.Weight > 0 && f.Type != IndexFieldText {
		return fmt.Errorf("weight is only valid on TEXT, got %s", f.Type)
	}
	if len(f.TagSeparator) > 1 {
		return fmt.Errorf("tag separator must be a single character, got %q", f.TagSeparator)
	}

	if f.Type != IndexFieldVector {
		if f.Vector != nil {
			return fmt.Errorf("vector options on %s field", f.Type)
		}
		return nil
	}

	if f.Sortable {
		return errors.New("vector field cannot be sortable")
	}
	v := f.Vector
	switch {
	case v == nil:
		return errors.New("vector field requires options")
	case v.Dim <= 0:
		return errors.New("vector field requires positive DIM")
	case v.M < 0 || v.EFConstruct < 0 || v.BlockSize < 0:
		return errors.New("vector parameters must not be negative")
	}
	switch v.Algorithm {
	case "", VectorHNSW, VectorFlat:
		return nil
	default:
		return fmt.Errorf("unknown vector algorithm %q", v.Algorithm)
	}
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
