package postgres

import (
	"math"
	"testing"
)

func TestSerializeRoundTrip(t *testing.T) {
	in := []float32{0.5, -1.25, 3.75, 0}
	raw := serializeEmbedding(in)
	if len(raw) != len(in)*4 {
		t.Fatalf("serialized length = %d, want %d", len(raw), len(in)*4)
	}
	out, err := deserializeEmbedding(raw, len(in))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestDeserializeRejectsSizeMismatch(t *testing.T) {
	if _, err := deserializeEmbedding(make([]byte, 7), 2); err == nil {
		t.Error("expected error for truncated buffer")
	}
	if _, err := deserializeEmbedding(nil, 0); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}

	if sim := cosineSimilarity(a, a); math.Abs(sim-1) > 1e-9 {
		t.Errorf("self similarity = %v, want 1", sim)
	}
	if sim := cosineSimilarity(a, b); math.Abs(sim) > 1e-9 {
		t.Errorf("orthogonal similarity = %v, want 0", sim)
	}
	if sim := cosineSimilarity(a, []float32{1, 0}); sim != 0 {
		t.Errorf("mismatched lengths = %v, want 0", sim)
	}
	if sim := cosineSimilarity(a, []float32{0, 0, 0}); sim != 0 {
		t.Errorf("zero vector = %v, want 0", sim)
	}

	// Scaling one vector must not change the similarity.
	c := []float32{2, 0, 0}
	if sim := cosineSimilarity(a, c); math.Abs(sim-1) > 1e-9 {
		t.Errorf("scaled similarity = %v, want 1", sim)
	}
}
