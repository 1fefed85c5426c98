package chaos_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anwesh0304/Chaotic-PSO/chaos"
)

var kinds = []string{"logistic", "tent", "lorenz"}

func TestNewUnknownKind(t *testing.T) {
	g, err := chaos.New("baker", 1)
	assert.Nil(t, g)
	assert.ErrorContains(t, err, "baker")
}

func TestRange(t *testing.T) {
	for _, kind := range kinds {
		t.Run(kind, func(t *testing.T) {
			g, err := chaos.New(kind, 42)
			require.NoError(t, err)

			for i := 0; i < 10000; i++ {
				v := g.Float64()
				require.GreaterOrEqual(t, v, 0.0, "draw %v", i)
				require.LessOrEqual(t, v, 1.0, "draw %v", i)
			}
		})
	}
}

func TestDeterministic(t *testing.T) {
	for _, kind := range kinds {
		t.Run(kind, func(t *testing.T) {
			a, err := chaos.New(kind, 5)
			require.NoError(t, err)
			b, err := chaos.New(kind, 5)
			require.NoError(t, err)

			for i := 0; i < 1000; i++ {
				assert.Equal(t, a.Float64(), b.Float64(), "draw %v", i)
			}
		})
	}
}

func TestSeedsDiffer(t *testing.T) {
	for _, kind := range kinds {
		t.Run(kind, func(t *testing.T) {
			a, err := chaos.New(kind, 1)
			require.NoError(t, err)
			b, err := chaos.New(kind, 2)
			require.NoError(t, err)

			same := true
			for i := 0; i < 100; i++ {
				if a.Float64() != b.Float64() {
					same = false
					break
				}
			}
			assert.False(t, same, "different seeds produced identical streams")
		})
	}
}

// The iterates must wander instead of collapsing onto a fixed point.
func TestNotDegenerate(t *testing.T) {
	for _, kind := range kinds {
		t.Run(kind, func(t *testing.T) {
			g, err := chaos.New(kind, 13)
			require.NoError(t, err)

			seen := map[float64]bool{}
			for i := 0; i < 1000; i++ {
				seen[g.Float64()] = true
			}
			assert.Greater(t, len(seen), 900, "stream revisits too many values")
		})
	}
}

func TestPair(t *testing.T) {
	p, err := chaos.NewPair("logistic", 3)
	require.NoError(t, err)

	r1, r2 := p.Next()
	assert.NotEqual(t, r1, r2, "pair streams are correlated")

	q, err := chaos.NewPair("logistic", 3)
	require.NoError(t, err)
	q1, q2 := q.Next()
	assert.Equal(t, r1, q1)
	assert.Equal(t, r2, q2)

	_, err = chaos.NewPair("baker", 3)
	assert.Error(t, err)
}
