package cpso

import (
	"math"
	"math/rand"
	"testing"
)

func testBounds(t *testing.T, low, up []float64) *Bounds {
	t.Helper()
	b, err := NewBounds(low, up)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestParticleUpdateTies(t *testing.T) {
	incumbent := NewPoint([]float64{1}, 5)
	p := &Particle{Point: incumbent, Best: incumbent, Vel: []float64{0}}

	tie := NewPoint([]float64{2}, 5)
	p.Update(tie)
	if p.Best.At(0) != 1 {
		t.Errorf("tie replaced incumbent best: got position %v", p.Best.Pos())
	}

	better := NewPoint([]float64{3}, 4)
	p.Update(better)
	if p.Best.At(0) != 3 || p.Best.Val != 4 {
		t.Errorf("strict improvement not recorded: got %v", p.Best)
	}
}

func TestMoveStaysInBounds(t *testing.T) {
	b := testBounds(t, []float64{-1, 5}, []float64{2, 6})
	rng := rand.New(rand.NewSource(17))
	pop := NewPopulationRand(20, b, rng)
	vmax := VmaxFromBounds(b)
	coeffs := UniformCoeffs{Rng: rng}

	gbest := NewPoint([]float64{0, 5.5}, 1)
	for iter := 0; iter < 200; iter++ {
		for _, p := range pop {
			p.Best = NewPoint(p.Best.Pos(), 2) // keep bests valid
			p.Move(gbest, b, vmax, DefaultInertia, DefaultCognition, DefaultSocial, coeffs)
			if !b.Contains(p.Pos()) {
				t.Fatalf("iter %v: particle %v escaped bounds: %v", iter, p.Id, p.Pos())
			}
			for j, v := range p.Vel {
				if math.Abs(v) > vmax[j] {
					t.Fatalf("iter %v: particle %v exceeds vmax: %v", iter, p.Id, p.Vel)
				}
			}
		}
	}
}

func TestPopulationBest(t *testing.T) {
	pop := NewPopulation([]Point{
		NewPoint([]float64{0}, math.Inf(1)),
		NewPoint([]float64{1}, math.Inf(1)),
		NewPoint([]float64{2}, math.Inf(1)),
	}, []float64{1}, rand.New(rand.NewSource(1)))

	pop[0].Update(NewPoint([]float64{0}, 3))
	pop[1].Update(NewPoint([]float64{1}, 1))
	pop[2].Update(NewPoint([]float64{2}, 2))

	best := pop.Best()
	if best.Id != 1 || best.Best.Val != 1 {
		t.Errorf("best particle is %v (val %v), want particle 1 (val 1)", best.Id, best.Best.Val)
	}
}

func TestScatter(t *testing.T) {
	b := testBounds(t, []float64{-5, -5}, []float64{5, 5})
	rng := rand.New(rand.NewSource(9))
	pop := NewPopulationRand(30, b, rng)

	// pretend the swarm collapsed near a candidate
	gbest := NewPoint([]float64{3, -2}, 0.5)
	for _, p := range pop {
		p.Point = NewPoint([]float64{3.001, -2.001}, 0.6)
		p.Best = NewPoint([]float64{3.001, -2.001}, 0.6)
	}

	pop.Scatter(gbest, b, rng)

	moved := false
	for _, p := range pop {
		if !b.Contains(p.Pos()) {
			t.Fatalf("scattered particle %v outside bounds: %v", p.Id, p.Pos())
		}
		if !math.IsInf(p.Best.Val, 1) {
			t.Errorf("particle %v personal best not reset: %v", p.Id, p.Best.Val)
		}
		if math.Abs(p.Vel[0]) > 1e-12 || math.Abs(p.Vel[1]) > 1e-12 {
			moved = true
		}
	}
	if !moved {
		t.Error("scatter left the whole swarm with zero velocity")
	}
}

func TestConstriction(t *testing.T) {
	k := Constriction(2.05, 2.05)
	if math.Abs(k-DefaultInertia) > 1e-12 {
		t.Errorf("Constriction(2.05, 2.05) = %v, want %v", k, DefaultInertia)
	}
	if math.Abs(2.05*k-DefaultSocial) > 1e-12 {
		t.Errorf("constricted social weight = %v, want %v", 2.05*k, DefaultSocial)
	}
}
