package capr

import "math"

// gasConstant is R in kcal/(mol*K); RT is computed per Engine from the
// configured temperature, matching the nearest-neighbor convention used by
// aptapool-core/thermo for duplex Tm.
const gasConstant = 0.0019872041

// base codes, A=1 C=2 G=3 U=4, per spec.md §4.9 step 1. 0 marks an unknown
// or unconvertible byte.
const (
	baseA = 1
	baseC = 2
	baseG = 3
	baseU = 4
)

func toBaseCode(b byte) int {
	switch b {
	case 'A', 'a':
		return baseA
	case 'C', 'c':
		return baseC
	case 'G', 'g':
		return baseG
	case 'U', 'u', 'T', 't':
		return baseU
	default:
		return 0
	}
}

// canPair reports Watson-Crick and G-U wobble pairing, the only pairs this
// engine's energy model assigns nonzero stacking or closing terms to.
func canPair(a, b int) bool {
	switch {
	case a == baseA && b == baseU, a == baseU && b == baseA:
		return true
	case a == baseG && b == baseC, a == baseC && b == baseG:
		return true
	case a == baseG && b == baseU, a == baseU && b == baseG:
		return true
	default:
		return false
	}
}

// minHairpinUnpaired is the fewest unpaired bases a closing pair (i,j) may
// enclose; below this no real hairpin loop geometry is possible.
const minHairpinUnpaired = 3

// energyModel bundles the simplified, from-scratch nearest-neighbor
// parameters this engine uses. These are not the full Turner 2004 tables;
// they are a compact log-linear approximation in the same spirit (loop
// initiation grows with log(length), stacks favor G-C over A-U over G-U),
// sufficient to produce a self-consistent partition function. See
// DESIGN.md for the rationale.
type energyModel struct {
	rt float64 // RT at the configured temperature, kcal/mol

	// multiloop linear-model parameters (kcal/mol): closing penalty a,
	// per-branch penalty b, per-unpaired-base penalty c.
	multiA float64
	multiB float64
	multiC float64
}

func newEnergyModel(temperatureC float64) energyModel {
	rt := gasConstant * (temperatureC + 273.15)
	return energyModel{
		rt:     rt,
		multiA: 3.4,
		multiB: 0.4,
		multiC: 0.0,
	}
}

// boltzmann converts a free energy (kcal/mol) into a Boltzmann factor.
func (m energyModel) boltzmann(deltaG float64) float64 {
	return math.Exp(-deltaG / m.rt)
}

// pairStackWeight is the Boltzmann factor for stacking pair (i,j) directly
// on pair (i+1,j-1); G-C rich stacks are favored over A-U, and any wobble
// G-U stack is weakest, matching the qualitative order of real NN tables.
func (m energyModel) pairStackWeight(a1, b1, a2, b2 int) float64 {
	dG := stackInitiation(a1, b1) + stackInitiation(a2, b2)
	return m.boltzmann(dG)
}

func stackInitiation(a, b int) float64 {
	switch {
	case (a == baseG && b == baseC) || (a == baseC && b == baseG):
		return -1.6
	case (a == baseA && b == baseU) || (a == baseU && b == baseA):
		return -1.0
	case (a == baseG && b == baseU) || (a == baseU && b == baseG):
		return -0.6
	default:
		return 0
	}
}

// loopInitiation implements the Jacobson-Stockmayer log-length extrapolation
// shared by hairpin, bulge and interior loop initiation terms: a fixed cost
// for loops up to a reference length, then a log(n/n0) correction for
// longer ones.
func loopInitiation(base, refLen float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	if float64(n) <= refLen {
		return base
	}
	return base + 1.75*gasConstant*310.15*math.Log(float64(n)/refLen)
}

func (m energyModel) hairpinEnergy(loopLen int, closeA, closeB int) float64 {
	dG := loopInitiation(4.5, float64(minHairpinUnpaired), loopLen)
	if (closeA == baseG && closeB == baseU) || (closeA == baseU && closeB == baseG) {
		dG += 0.5 // wobble closure penalty
	}
	return dG
}

func (m energyModel) bulgeEnergy(bulgeLen int) float64 {
	return loopInitiation(3.8, 1, bulgeLen)
}

func (m energyModel) interiorEnergy(nL, nR int) float64 {
	n := nL + nR
	dG := loopInitiation(3.0, 2, n)
	asym := math.Abs(float64(nL - nR))
	dG += 0.3 * asym
	return dG
}

// loopWeight returns the Boltzmann factor for the stack/bulge/interior loop
// closed on the outside by (i,j) and on the inside by (ip,jp), both
// 0-based, i<ip<jp<j.
func (m energyModel) loopWeight(seq []int, i, j, ip, jp int) float64 {
	nL := ip - i - 1
	nR := j - jp - 1
	var dG float64
	switch {
	case nL == 0 && nR == 0:
		dG = stackInitiation(seq[i], seq[j]) + stackInitiation(seq[jp], seq[ip])
	case nL == 0 || nR == 0:
		dG = m.bulgeEnergy(nL + nR)
	default:
		dG = m.interiorEnergy(nL, nR)
	}
	return m.boltzmann(dG)
}
