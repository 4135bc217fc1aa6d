package cutinfo

import (
	"fmt"
	"strings"
)

type DomainType uint8

const (
	NEG DomainType = iota
	POS
	IF
)

var AllDomainTypes = []DomainType{NEG, POS, IF}

func (dt DomainType) String() string {
	return [...]string{"NEG", "POS", "IF"}[dt]
}

// VorB distinguishes volume elements from boundary elements
type VorB uint8

const (
	Volume VorB = iota
	Boundary
)

var AllVorB = []VorB{Volume, Boundary}

func (vb VorB) String() string {
	return [...]string{"Volume", "Boundary"}[vb]
}

type ElementId struct {
	VB VorB
	Nr int
}

/*
ZeroPolicy decides how vertex values of exactly zero take part in classification.

ZeroNeutral: an entity is IF only when it has a strictly negative and a strictly positive vertex
value. Otherwise it is POS when any value is positive and NEG when all values are <= 0, so an
entity with all values zero is NEG.

ZeroInterface: additionally, any vertex value of zero on an entity with a nonzero value forces IF.
*/
type ZeroPolicy uint8

const (
	ZeroNeutral ZeroPolicy = iota
	ZeroInterface
)

func (zp ZeroPolicy) String() string {
	return [...]string{"neutral", "interface"}[zp]
}

func ParseZeroPolicy(s string) (zp ZeroPolicy, err error) {
	switch strings.ToLower(s) {
	case "", "neutral":
		zp = ZeroNeutral
	case "interface":
		zp = ZeroInterface
	default:
		err = fmt.Errorf("unknown zero policy %q, must be neutral or interface", s)
	}
	return
}

// Classify returns the DomainType of an entity with the given vertex values
func (zp ZeroPolicy) Classify(vals []float64) DomainType {
	var (
		hasNeg, hasPos, hasZero bool
	)
	for _, v := range vals {
		switch {
		case v < 0:
			hasNeg = true
		case v > 0:
			hasPos = true
		default:
			hasZero = true
		}
	}
	switch {
	case hasNeg && hasPos:
		return IF
	case zp == ZeroInterface && hasZero && (hasNeg || hasPos):
		return IF
	case hasPos:
		return POS
	}
	return NEG
}
