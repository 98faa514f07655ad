package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const DefaultHashingDimensions = 1024

// Hashing is a deterministic bag-of-words embedder. It needs no network and
// ranks texts sharing more tokens as more similar.
type Hashing struct {
	dimensions int
}

func NewHashing(dimensions int) *Hashing {
	if dimensions <= 0 {
		dimensions = DefaultHashingDimensions
	}
	return &Hashing{dimensions: dimensions}
}

func (h *Hashing) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vector := make([]float32, h.dimensions)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, token := range tokens {
		for _, part := range tokenParts(token) {
			hasher := fnv.New32a()
			_, _ = hasher.Write([]byte(part))
			vector[hasher.Sum32()%uint32(h.dimensions)]++
		}
	}
	if len(tokens) == 0 {
		vector[0] = 1
	}

	var norm float64
	for _, value := range vector {
		norm += float64(value) * float64(value)
	}
	norm = math.Sqrt(norm)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
	return vector, nil
}

// tokenParts also emits a crude singular form so "movies" and "movie" share
// a bucket.
func tokenParts(token string) []string {
	if len(token) > 3 && strings.HasSuffix(token, "s") {
		return []string{token, strings.TrimSuffix(token, "s")}
	}
	return []string{token}
}
