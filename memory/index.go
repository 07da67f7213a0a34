package memory

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// IndexKind selects vector index implementation
type IndexKind string

const (
	// IndexFlat scans vectors one by one
	IndexFlat = IndexKind("flat")
	// IndexDense keeps vectors in a row-major matrix and scores all of them with one matrix-vector product
	IndexDense = IndexKind("dense")
)

var (
	// ErrDimensionMismatch is returned when vector length differs from index dimension
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrUnknownIndex is returned for unsupported index kinds
	ErrUnknownIndex = errors.New("unknown index kind")
)

// Match is position of a stored vector and its squared L2 distance to the query
type Match struct {
	Position int
	Distance float64
}

// Index is nearest neighbour index over fixed-size vectors. Implementations are interchangeable.
type Index interface {
	Kind() IndexKind
	Dim() int
	Len() int
	Add(vectors ...[]float64) error
	Search(query []float64, k int) ([]Match, error)
	Vectors() [][]float64
}

// NewIndex creates empty index of given kind
func NewIndex(kind IndexKind, dim int) (Index, error) {
	switch kind {
	case IndexFlat, "":
		return &FlatIndex{dim: dim, vectors: make([][]float64, 0)}, nil
	case IndexDense:
		return &DenseIndex{dim: dim, data: make([]float64, 0), norms: make([]float64, 0)}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownIndex, "kind '%s'", kind)
	}
}

// FlatIndex is linear scan index
type FlatIndex struct {
	dim     int
	vectors [][]float64
}

func (idx *FlatIndex) Kind() IndexKind { return IndexFlat }
func (idx *FlatIndex) Dim() int        { return idx.dim }
func (idx *FlatIndex) Len() int        { return len(idx.vectors) }

// Add appends copies of vectors
func (idx *FlatIndex) Add(vectors ...[]float64) error {
	for _, vec := range vectors {
		if len(vec) != idx.dim {
			return errors.Wrapf(ErrDimensionMismatch, "expected %d, got %d", idx.dim, len(vec))
		}
		idx.vectors = append(idx.vectors, append([]float64(nil), vec...))
	}
	return nil
}

// Search returns up to k nearest vectors, closest first
func (idx *FlatIndex) Search(query []float64, k int) ([]Match, error) {
	if len(query) != idx.dim {
		return nil, errors.Wrapf(ErrDimensionMismatch, "expected %d, got %d", idx.dim, len(query))
	}
	matches := make([]Match, len(idx.vectors))
	for i, vec := range idx.vectors {
		dist := floats.Distance(vec, query, 2)
		matches[i] = Match{Position: i, Distance: dist * dist}
	}
	return topK(matches, k), nil
}

// Vectors returns stored vectors in insertion order
func (idx *FlatIndex) Vectors() [][]float64 {
	return idx.vectors
}

// DenseIndex is matrix backed index
type DenseIndex struct {
	dim   int
	data  []float64
	norms []float64
}

func (idx *DenseIndex) Kind() IndexKind { return IndexDense }
func (idx *DenseIndex) Dim() int        { return idx.dim }
func (idx *DenseIndex) Len() int        { return len(idx.norms) }

// Add appends vectors as new matrix rows
func (idx *DenseIndex) Add(vectors ...[]float64) error {
	for _, vec := range vectors {
		if len(vec) != idx.dim {
			return errors.Wrapf(ErrDimensionMismatch, "expected %d, got %d", idx.dim, len(vec))
		}
		idx.data = append(idx.data, vec...)
		idx.norms = append(idx.norms, floats.Dot(vec, vec))
	}
	return nil
}

// Search returns up to k nearest vectors, closest first.
// Squared distances are expanded as |x|^2 - 2x.q + |q|^2.
func (idx *DenseIndex) Search(query []float64, k int) ([]Match, error) {
	if len(query) != idx.dim {
		return nil, errors.Wrapf(ErrDimensionMismatch, "expected %d, got %d", idx.dim, len(query))
	}
	n := idx.Len()
	if n == 0 {
		return []Match{}, nil
	}
	rows := mat.NewDense(n, idx.dim, idx.data)
	scores := mat.NewVecDense(n, nil)
	scores.MulVec(rows, mat.NewVecDense(idx.dim, append([]float64(nil), query...)))
	queryNorm := floats.Dot(query, query)
	matches := make([]Match, n)
	for i := 0; i < n; i++ {
		matches[i] = Match{Position: i, Distance: max(0, idx.norms[i]-2*scores.AtVec(i)+queryNorm)}
	}
	return topK(matches, k), nil
}

// Vectors returns stored vectors in insertion order
func (idx *DenseIndex) Vectors() [][]float64 {
	vectors := make([][]float64, idx.Len())
	for i := range vectors {
		vectors[i] = idx.data[i*idx.dim : (i+1)*idx.dim]
	}
	return vectors
}

func topK(matches []Match, k int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if k >= 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches
}

type indexSnapshot struct {
	Kind    IndexKind   `msgpack:"kind"`
	Dim     int         `msgpack:"dim"`
	Vectors [][]float64 `msgpack:"vectors"`
}

// SaveIndex writes index snapshot atomically
func SaveIndex(path string, idx Index) error {
	payload, err := msgpack.Marshal(indexSnapshot{
		Kind:    idx.Kind(),
		Dim:     idx.Dim(),
		Vectors: idx.Vectors(),
	})
	if err != nil {
		return errors.Wrap(err, "Can't encode index snapshot")
	}
	return writeFileAtomic(path, payload)
}

// LoadIndex restores index from snapshot written by SaveIndex
func LoadIndex(path string) (Index, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read index snapshot '%s'", path)
	}
	snapshot := indexSnapshot{}
	if err := msgpack.Unmarshal(payload, &snapshot); err != nil {
		return nil, errors.Wrapf(err, "Can't decode index snapshot '%s'", path)
	}
	idx, err := NewIndex(snapshot.Kind, snapshot.Dim)
	if err != nil {
		return nil, err
	}
	if err := idx.Add(snapshot.Vectors...); err != nil {
		return nil, errors.Wrap(err, "Can't restore index vectors")
	}
	return idx, nil
}

func writeFileAtomic(path string, payload []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return errors.Wrapf(err, "Can't write temp file '%s'", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "Can't rename '%s'", tmp)
	}
	return nil
}
