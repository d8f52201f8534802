package roster

// Normalizer is the single entry point callers use per roster file.
type Normalizer struct {
	Options ReshapeOptions
}

// NewNormalizer returns a Normalizer with default options.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize reshapes and types grid. It holds no state between calls, so the
// same input always yields the same records.
func (n *Normalizer) Normalize(grid RawGrid, filename string) ([]Record, error) {
	rows, err := Reshape(grid, filename, n.Options)
	if err != nil {
		return nil, err
	}
	return TypeFields(rows), nil
}

// Normalize runs the pipeline with default options.
func Normalize(grid RawGrid, filename string) ([]Record, error) {
	return NewNormalizer().Normalize(grid, filename)
}
