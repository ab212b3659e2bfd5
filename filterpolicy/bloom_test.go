// Copyright (c) 2011 The LevelDB Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package filterpolicy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBloomFilterMatchesInsertedKeys(t *testing.T) {
	p := NewBloomPolicy(10)
	var keys [][]byte
	for i := 0; i < 1000; i++ {
		keys = append(keys, []byte(fmt.Sprintf("key-%d", i)))
	}
	filter := p.CreateFilter(keys, nil)
	for _, k := range keys {
		require.True(t, p.KeyMayMatch(k, filter), "expected match for %s", k)
	}
}

func TestBloomFilterFalsePositiveRateIsBounded(t *testing.T) {
	p := NewBloomPolicy(10)
	var keys [][]byte
	for i := 0; i < 10000; i++ {
		keys = append(keys, []byte(fmt.Sprintf("present-%d", i)))
	}
	filter := p.CreateFilter(keys, nil)

	falsePositives := 0
	const trials = 10000
	for i := 0; i < trials; i++ {
		absent := []byte(fmt.Sprintf("absent-%d", i))
		if p.KeyMayMatch(absent, filter) {
			falsePositives++
		}
	}
	// 10 bits/key should give roughly a 1% false positive rate; allow
	// generous headroom so the test isn't flaky.
	require.Less(t, falsePositives, trials/10)
}

func TestBloomFilterEmptyKeySetNeverMatches(t *testing.T) {
	p := NewBloomPolicy(10)
	filter := p.CreateFilter(nil, nil)
	require.False(t, p.KeyMayMatch([]byte("anything"), filter))
}

func TestBloomFilterRejectsTooShortFilter(t *testing.T) {
	p := NewBloomPolicy(10)
	require.False(t, p.KeyMayMatch([]byte("k"), []byte{0}))
}
