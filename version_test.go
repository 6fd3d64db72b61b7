// version_test.go: version comparison truth table
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareVersions_Ordering(t *testing.T) {
	smaller := []struct {
		low, high string
	}{
		{"", "1"},
		{"0", "1.0"},
		{"1.2beta", "1.2"},
		{"1.2beta", "1.2beta2"},
		{"1.2beta", "1.2.0"},
		{"1.2beta4", "1.2beta10"},
		{"1.2beta4", "1.2"},
		{"1.2beta4", "1.2rc"},
		{"1.2alpha", "1.2beta"},
		{"1.2beta", "1.2rc"},
		{"1.2rc", "1.2"},
		{"1.2rc", "1.2a"},
		{"1.2", "1.2a"},
		{"1.2a", "1.2b"},
		{"1.7.0_11", "1.7.0_12"},
		{"1.7.0_11rc1", "1.7.0_11rc2"},
		{"1.7.0_11rc", "1.7.0_11"},
		{"1.7.0_9", "1.7.0_11rc"},
		{"1.2", "1.2.1"},
		{"1.2", "1.2.0.1"},
		{"plugin1.2beta1.zip", "plugin1.2-beta2.zip"},
		{"plugin1.2beta.zip", "plugin1.2.zip"},
		{"plugin1.2.zip", "plugin1.10.zip"},
		{"1.2BETA", "1.2RC"},
		{"1.99999999999999999999", "1.100000000000000000000"},
	}

	for _, tc := range smaller {
		t.Run(tc.low+"<"+tc.high, func(t *testing.T) {
			assert.Negative(t, CompareVersions(tc.low, tc.high))
			assert.Positive(t, CompareVersions(tc.high, tc.low))
		})
	}
}

func TestCompareVersions_Equality(t *testing.T) {
	equal := []struct {
		a, b string
	}{
		{"1.2", "1.2.0.0"},
		{"1.2beta4", "1.2 beta-4"},
		{"1.2beta4", "1,2,beta,4"},
		{"", "0"},
		{"1.2rc", "1.2RC"},
	}

	for _, tc := range equal {
		t.Run(tc.a+"=="+tc.b, func(t *testing.T) {
			assert.Zero(t, CompareVersions(tc.a, tc.b))
			assert.Zero(t, CompareVersions(tc.b, tc.a))
		})
	}
}

func TestCompareVersions_TextIsCaseSensitive(t *testing.T) {
	assert.Negative(t, CompareVersions("1.2B", "1.2a"))
}

func TestSortVersionsDescending(t *testing.T) {
	names := []string{
		"hello-1.0.zip",
		"hello-1.2beta.zip",
		"hello-1.10.zip",
		"hello-1.2.zip",
		"readme.txt",
	}
	SortVersionsDescending(names)

	assert.Equal(t, []string{
		"readme.txt",
		"hello-1.10.zip",
		"hello-1.2.zip",
		"hello-1.2beta.zip",
		"hello-1.0.zip",
	}, names)
}
