// version.go: Version string comparison with pre-release tie-break rules
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"math/big"
	"sort"
	"strings"
	"unicode"
)

// versionToken is one part of a split version string: either an integer or a
// non-numeric run such as "beta" or "a".
type versionToken struct {
	number *big.Int
	text   string
}

func (t versionToken) isNumber() bool {
	return t.number != nil
}

var (
	zeroToken = versionToken{number: big.NewInt(0)}

	preReleaseSentinels = map[string]int64{
		"alpha": -3,
		"beta":  -2,
		"rc":    -1,
	}
)

// CompareVersions compares two version strings and returns a negative number,
// zero or a positive number when a is smaller than, equal to or greater than b.
//
// Versions are split on punctuation and white space, then at every
// digit/non-digit boundary. Missing parts count as 0 and the pre-release
// strings alpha, beta and rc count as -3, -2 and -1. When two parts of the
// same position have different kinds, the numeric one is the smaller:
//
//	CompareVersions("1.2beta4", "1.2rc")  < 0
//	CompareVersions("1.2rc", "1.2a")      < 0
//	CompareVersions("1.2", "1.2a")        < 0
//	CompareVersions("1.2beta4", "1,2,beta,4") == 0
//
// File names carrying a version compare the same way, which is what the
// scanner relies on to visit the highest bundle version first.
func CompareVersions(a, b string) int {
	partsA := splitVersion(a)
	partsB := splitVersion(b)

	for i := 0; i < len(partsA) || i < len(partsB); i++ {
		tokenA := zeroToken
		if i < len(partsA) {
			tokenA = convertPreRelease(partsA[i])
		}
		tokenB := zeroToken
		if i < len(partsB) {
			tokenB = convertPreRelease(partsB[i])
		}

		switch {
		case tokenA.isNumber() && tokenB.isNumber():
			if c := tokenA.number.Cmp(tokenB.number); c != 0 {
				return c
			}
		case !tokenA.isNumber() && !tokenB.isNumber():
			if c := strings.Compare(tokenA.text, tokenB.text); c != 0 {
				return c
			}
		case tokenA.isNumber():
			return -1
		default:
			return 1
		}
	}
	return 0
}

// SortVersionsDescending sorts names from the highest to the lowest version.
func SortVersionsDescending(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return CompareVersions(names[i], names[j]) > 0
	})
}

// splitVersion splits a version into its numeric and non-numeric runs.
func splitVersion(version string) []versionToken {
	tokens := make([]versionToken, 0, 8)
	for _, part := range strings.FieldsFunc(version, isVersionSeparator) {
		runes := []rune(part)
		for i := 0; i < len(runes); {
			start := i
			digits := isASCIIDigit(runes[i])
			for i < len(runes) && isASCIIDigit(runes[i]) == digits {
				i++
			}
			run := string(runes[start:i])
			if digits {
				n, _ := new(big.Int).SetString(run, 10)
				tokens = append(tokens, versionToken{number: n})
			} else {
				tokens = append(tokens, versionToken{text: run})
			}
		}
	}
	return tokens
}

// convertPreRelease replaces alpha, beta and rc by their negative sentinels.
func convertPreRelease(token versionToken) versionToken {
	if token.isNumber() {
		return token
	}
	if sentinel, ok := preReleaseSentinels[strings.ToLower(token.text)]; ok {
		return versionToken{number: big.NewInt(sentinel)}
	}
	return token
}

// isVersionSeparator matches white space and the 32 ASCII punctuation
// characters; unicode files $ + < = > ^ ` | ~ under symbols.
func isVersionSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	return r < unicode.MaxASCII && (unicode.IsPunct(r) || unicode.IsSymbol(r))
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
