package capr

import "fmt"

// Config holds the tunables spec.md §4.9 lists as engine inputs.
type Config struct {
	TemperatureC        float64 // default 37
	MaxSpan             int     // maximum base-pair span, typical 30-100
	MaxInteriorUnpaired int     // cap on total unpaired bases in one interior loop
}

// DefaultConfig matches spec.md §4.9's stated defaults.
func DefaultConfig() Config {
	return Config{TemperatureC: 37, MaxSpan: 60, MaxInteriorUnpaired: 30}
}

// Engine is a reusable partition-function profiler. Per spec.md §4.10 it
// holds large per-length work arrays that are reused across sequences of
// the same length rather than reallocated on every call; callers running
// many sequences of mixed lengths should still get one Engine per
// consumer goroutine, since Engine is not safe for concurrent use.
type Engine struct {
	cfg   Config
	model energyModel

	cachedLen int
	z, zb, zm, zout [][]float64
}

// New constructs an Engine from cfg, filling in spec.md defaults for any
// zero field.
func New(cfg Config) *Engine {
	if cfg.TemperatureC == 0 {
		cfg.TemperatureC = 37
	}
	if cfg.MaxSpan <= 0 {
		cfg.MaxSpan = 60
	}
	if cfg.MaxInteriorUnpaired <= 0 {
		cfg.MaxInteriorUnpaired = 30
	}
	return &Engine{cfg: cfg, model: newEnergyModel(cfg.TemperatureC)}
}

func alloc2D(n int) [][]float64 {
	rows := make([][]float64, n)
	flat := make([]float64, n*n)
	for i := range rows {
		rows[i] = flat[i*n : i*n+n]
	}
	return rows
}

func reset2D(rows [][]float64) {
	for _, r := range rows {
		for i := range r {
			r[i] = 0
		}
	}
}

func (e *Engine) ensureArrays(l int) {
	if e.cachedLen == l {
		reset2D(e.z)
		reset2D(e.zb)
		reset2D(e.zm)
		reset2D(e.zout)
		return
	}
	e.z = alloc2D(l)
	e.zb = alloc2D(l)
	e.zm = alloc2D(l)
	e.zout = alloc2D(l)
	e.cachedLen = l
}

// Predict computes the six-context structural profile for seq (DNA or RNA
// bytes; T is converted to U per spec.md §4.9 step 1).
func (e *Engine) Predict(seq []byte) (*Profile, error) {
	l := len(seq)
	prof := &Profile{Length: l, P: make([][numContexts]float64, l)}
	if l == 0 {
		return prof, nil
	}

	codes := make([]int, l)
	for i, b := range seq {
		c := toBaseCode(b)
		if c == 0 {
			return nil, fmt.Errorf("capr: invalid base %q at position %d", b, i)
		}
		codes[i] = c
	}

	e.ensureArrays(l)
	e.fillInside(codes)
	e.fillOutside(codes)
	e.aggregate(codes, prof)
	return prof, nil
}

func (e *Engine) getZ(p, q int) float64 {
	if p > q {
		return 1
	}
	return e.z[p][q]
}

func (e *Engine) getZm(p, q int) float64 {
	if p > q {
		return 1
	}
	return e.zm[p][q]
}

func (e *Engine) pairable(codes []int, i, j int) bool {
	if j-i > e.cfg.MaxSpan || j-i-1 < minHairpinUnpaired {
		return false
	}
	return canPair(codes[i], codes[j])
}

// fillInside computes zb and zm by increasing window length, then z over
// the full exterior range, per spec.md §4.9 step 2-3.
func (e *Engine) fillInside(codes []int) {
	l := len(codes)

	for length := minHairpinUnpaired + 2; length <= l; length++ {
		for i := 0; i+length-1 < l; i++ {
			j := i + length - 1
			if e.pairable(codes, i, j) {
				e.zb[i][j] = e.hairpinTerm(codes, i, j) + e.interiorTerm(codes, i, j) + e.multiTerm(codes, i, j)
			}
		}
	}

	for length := 1; length <= l; length++ {
		for p := 0; p+length-1 < l; p++ {
			q := p + length - 1
			// p unpaired within the multiloop interior
			zm := e.model.boltzmann(e.model.multiC) * e.getZm(p+1, q)
			for r := p; r <= q; r++ {
				if e.zb[p][r] > 0 {
					zm += e.model.boltzmann(e.model.multiB) * e.zb[p][r] * e.getZm(r+1, q)
				}
			}
			e.zm[p][q] = zm
		}
	}

	for i := 0; i < l; i++ {
		for j := i; j < l; j++ {
			z := e.getZ(i, j-1)
			for k := i; k <= j; k++ {
				if e.zb[k][j] > 0 {
					z += e.zb[k][j] * e.getZ(i, k-1)
				}
			}
			e.z[i][j] = z
		}
	}
}

func (e *Engine) hairpinTerm(codes []int, i, j int) float64 {
	loopLen := j - i - 1
	if loopLen < minHairpinUnpaired {
		return 0
	}
	return e.model.boltzmann(e.model.hairpinEnergy(loopLen, codes[i], codes[j]))
}

func (e *Engine) interiorTerm(codes []int, i, j int) float64 {
	var sum float64
	maxUnpaired := e.cfg.MaxInteriorUnpaired
	for ip := i + 1; ip < j; ip++ {
		if ip-i-1 > maxUnpaired {
			break
		}
		for jp := ip + 1; jp < j; jp++ {
			nl := ip - i - 1
			nr := j - jp - 1
			if nl+nr > maxUnpaired {
				continue
			}
			if e.zb[ip][jp] <= 0 {
				continue
			}
			sum += e.model.loopWeight(codes, i, j, ip, jp) * e.zb[ip][jp]
		}
	}
	return sum
}

func (e *Engine) multiTerm(codes []int, i, j int) float64 {
	if j-i-1 < 2 {
		return 0
	}
	zmInner := e.getZm(i+1, j-1)
	if zmInner <= 0 {
		return 0
	}
	return e.model.boltzmann(e.model.multiA) * zmInner
}

// fillOutside computes zout by decreasing window length, per spec.md §4.9
// step 4.
func (e *Engine) fillOutside(codes []int) {
	l := len(codes)
	maxSpan := e.cfg.MaxSpan

	for length := l; length >= minHairpinUnpaired+2; length-- {
		for i := 0; i+length-1 < l; i++ {
			j := i + length - 1
			if e.zb[i][j] <= 0 {
				continue
			}
			e.zout[i][j] = e.outsideTerm(codes, i, j, maxSpan)
		}
	}
}

func (e *Engine) outsideTerm(codes []int, i, j, maxSpan int) float64 {
	l := len(codes)
	total := e.getZ(0, i-1) * e.getZ(j+1, l-1)

	maxUnpaired := e.cfg.MaxInteriorUnpaired
	for ip := i - 1; ip >= 0 && i-ip-1 <= maxUnpaired; ip-- {
		for jp := j + 1; jp < l; jp++ {
			nl := i - ip - 1
			nr := jp - j - 1
			if nl+nr > maxUnpaired {
				break
			}
			if jp-ip > maxSpan || e.zb[ip][jp] <= 0 || e.zout[ip][jp] <= 0 {
				continue
			}
			if !canPair(codes[ip], codes[jp]) {
				continue
			}
			total += e.zout[ip][jp] * e.model.loopWeight(codes, ip, jp, i, j)
		}
	}

	branchFactor := e.model.boltzmann(e.model.multiA + e.model.multiB)
	for ip := i - 1; ip >= 0 && i-ip <= maxSpan; ip-- {
		for jp := j + 1; jp < l && jp-ip <= maxSpan; jp++ {
			if e.zb[ip][jp] <= 0 || e.zout[ip][jp] <= 0 {
				continue
			}
			if !canPair(codes[ip], codes[jp]) {
				continue
			}
			total += e.zout[ip][jp] * branchFactor * e.getZm(ip+1, i-1) * e.getZm(j+1, jp-1)
		}
	}
	return total
}

// aggregate distributes the total partition-function mass across the six
// contexts at each position, per spec.md §4.9 step 5.
func (e *Engine) aggregate(codes []int, prof *Profile) {
	l := len(codes)
	total := e.getZ(0, l-1)
	if total <= 0 {
		return
	}

	for k := 0; k < l; k++ {
		mass := e.getZ(0, k-1) * e.getZ(k+1, l-1) / total
		prof.P[k][ContextExterior] += clampProb(mass)
	}

	for i := 0; i < l; i++ {
		for j := i + minHairpinUnpaired + 1; j < l; j++ {
			zb := e.zb[i][j]
			zo := e.zout[i][j]
			if zb <= 0 || zo <= 0 {
				continue
			}
			pairProb := zb * zo / total
			prof.P[i][ContextStem] += clampProb(pairProb)
			prof.P[j][ContextStem] += clampProb(pairProb)

			h := e.hairpinTerm(codes, i, j)
			if h > 0 {
				share := pairProb * h / zb
				for k := i + 1; k < j; k++ {
					prof.P[k][ContextHairpin] += clampProb(share)
				}
			}

			e.aggregateInterior(codes, prof, i, j, pairProb, zb)
			e.aggregateMulti(prof, i, j, pairProb, zb)
		}
	}
}

func (e *Engine) aggregateInterior(codes []int, prof *Profile, i, j int, pairProb, zb float64) {
	maxUnpaired := e.cfg.MaxInteriorUnpaired
	for ip := i + 1; ip < j; ip++ {
		if ip-i-1 > maxUnpaired {
			break
		}
		for jp := ip + 1; jp < j; jp++ {
			nl := ip - i - 1
			nr := j - jp - 1
			if nl == 0 && nr == 0 {
				continue // a direct stack: no unpaired bases to attribute
			}
			if nl+nr > maxUnpaired || e.zb[ip][jp] <= 0 {
				continue
			}
			w := e.model.loopWeight(codes, i, j, ip, jp)
			contrib := pairProb * w * e.zb[ip][jp] / zb
			ctx := ContextInterior
			if nl == 0 || nr == 0 {
				ctx = ContextBulge
			}
			for k := i + 1; k < ip; k++ {
				prof.P[k][ctx] += clampProb(contrib)
			}
			for k := jp + 1; k < j; k++ {
				prof.P[k][ctx] += clampProb(contrib)
			}
		}
	}
}

func (e *Engine) aggregateMulti(prof *Profile, i, j int, pairProb, zb float64) {
	if j-i-1 < 2 {
		return
	}
	zmFull := e.getZm(i+1, j-1)
	if zmFull <= 0 {
		return
	}
	closeFactor := e.model.boltzmann(e.model.multiA)
	unpairedFactor := e.model.boltzmann(e.model.multiC)
	for k := i + 1; k < j; k++ {
		mass := e.getZm(i+1, k-1) * unpairedFactor * e.getZm(k+1, j-1)
		contrib := pairProb * closeFactor * mass / zb
		prof.P[k][ContextMultiloop] += clampProb(contrib)
	}
}

func clampProb(p float64) float64 {
	if p < 1e-300 {
		return 0
	}
	return p
}
