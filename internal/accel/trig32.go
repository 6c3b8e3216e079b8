// internal/accel/trig32.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// https://github.com/golang/go/issues/45915: "For graphics it was common a
// while ago to use tables instead of invoking a function every time you
// needed a Sin/Cos anyway, so having 32-bit versions would still not be the
// optimal answer"
//
// internal/localmap's per-pixel projection kernel runs across a
// display-sized frame many times a second, and the accelerator's
// shader-style contract for that kernel is float32 in and float32 out, so
// ProjectFast32 below keeps sin/cos and the surrounding arithmetic in
// float32. Its asin, atan2 and longitude wrap, and Acos32, still go
// through float64 math.

package accel

import gomath "math"

func Sin32(x float32) float32 {
	return SinCos32(x)[0]
}

func Cos32(x float32) float32 {
	return SinCos32(x)[1]
}

// SinCos32 computes sin(x) and cos(x) simultaneously for a single float32
// value. Ported from syrah/FixedVectorMath.h:152, which is via Abramowitz
// and Stegun.
func SinCos32(xFull float32) [2]float32 {
	const piOverTwo = float32(1.57079637050628662109375)
	const twoOverPi = float32(0.636619746685028076171875)

	scaled := xFull * twoOverPi
	kReal := float32(gomath.Floor(float64(scaled)))
	k := int(kReal)

	// Reduced range version of x
	x := xFull - kReal*piOverTwo
	kMod4 := k & 3
	cosUsecos := kMod4 == 0 || kMod4 == 2
	sinUsecos := kMod4 == 1 || kMod4 == 3
	sinFlipsign := kMod4 > 1
	cosFlipsign := kMod4 == 1 || kMod4 == 2

	const sinC2 = -0.16666667163372039794921875
	const sinC4 = 8.333347737789154052734375e-3
	const sinC6 = -1.9842604524455964565277099609375e-4
	const sinC8 = 2.760012648650445044040679931640625e-6
	const sinC10 = -2.50293279435709337121807038784027099609375e-8

	const cosC2 = -0.5
	const cosC4 = 4.166664183139801025390625e-2
	const cosC6 = -1.388833043165504932403564453125e-3
	const cosC8 = 2.47562347794882953166961669921875e-5
	const cosC10 = -2.59630184018533327616751194000244140625e-7

	x2 := x * x

	sinFormula := x2*sinC10 + sinC8
	sinFormula = x2*sinFormula + sinC6
	sinFormula = x2*sinFormula + sinC4
	sinFormula = x2*sinFormula + sinC2
	sinFormula = x2*sinFormula + 1
	sinFormula *= x

	cosFormula := x2*cosC10 + cosC8
	cosFormula = x2*cosFormula + cosC6
	cosFormula = x2*cosFormula + cosC4
	cosFormula = x2*cosFormula + cosC2
	cosFormula = x2*cosFormula + 1

	var sin, cos float32
	if sinUsecos {
		sin = cosFormula
	} else {
		sin = sinFormula
	}

	if cosUsecos {
		cos = cosFormula
	} else {
		cos = sinFormula
	}

	if sinFlipsign {
		sin = -sin
	}
	if cosFlipsign {
		cos = -cos
	}

	return [2]float32{sin, cos}
}

// SafeASin32 clamps a to [-1,1] before calling asin, guarding against
// inputs that drift a bit outside that range due to float32 rounding.
func SafeASin32(a float32) float32 {
	return float32(gomath.Asin(float64(clamp32(a, -1, 1))))
}

// Acos32 computes acos(x) via the identity acos(x) = pi/2 - asin(x),
// reusing SafeASin32's clamping so out-of-range x from float32 rounding
// doesn't propagate a NaN.
func Acos32(x float32) float32 {
	const piOverTwo = float32(1.57079637050628662109375)
	return piOverTwo - SafeASin32(x)
}

// ProjectFast32 is the float32 counterpart of geo.ProjectWGS84's forward-
// azimuth destination-point formula: same spherical-earth math, carried
// in float32 rather than float64 (aside from the asin, the atan2 and the
// longitude wrap, which go through float64 math), for the local-map
// projector's per-pixel kernel.
func ProjectFast32(lat, lon, bearingDeg, distMeters, meanRadiusMeters float32) (lat2, lon2 float32) {
	phi1 := deg2rad32(lat)
	lambda1 := deg2rad32(lon)
	theta := deg2rad32(bearingDeg)
	delta := distMeters / meanRadiusMeters

	scPhi1 := SinCos32(phi1)
	sinPhi1, cosPhi1 := scPhi1[0], scPhi1[1]
	scDelta := SinCos32(delta)
	sinDelta, cosDelta := scDelta[0], scDelta[1]
	scTheta := SinCos32(theta)
	sinTheta, cosTheta := scTheta[0], scTheta[1]

	sinPhi2 := sinPhi1*cosDelta + cosPhi1*sinDelta*cosTheta
	phi2 := SafeASin32(sinPhi2)

	y := sinTheta * sinDelta * cosPhi1
	x := cosDelta - sinPhi1*sinPhi2
	lambda2 := lambda1 + float32(gomath.Atan2(float64(y), float64(x)))

	lat2 = rad2deg32(phi2)
	lon2 = rad2deg32(normalizeLongitudeRad32(lambda2))
	return lat2, lon2
}

func deg2rad32(d float32) float32 { return d * float32(gomath.Pi) / 180 }
func rad2deg32(r float32) float32 { return r * 180 / float32(gomath.Pi) }

func normalizeLongitudeRad32(l float32) float32 {
	lf := float64(l)
	return float32(gomath.Mod(lf+3*gomath.Pi, 2*gomath.Pi) - gomath.Pi)
}

func clamp32(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
