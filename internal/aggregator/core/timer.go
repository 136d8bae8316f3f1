// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"sort"
	"strconv"
)

// SummarizeTimer reduces one timer metric's TimeSet to a stat-name -> value
// mapping. thresholds are signed percentile-bounded-mean windows (e.g. 90,
// -95); interval is the flush period in seconds, used for count_ps.
//
// The threshold window size uses the float form k = floor((|T|/100) * n),
// not integer division truncated before the multiply — the latter yields 0
// for every |T| < 100 and would silently skip every configured threshold.
func SummarizeTimer(ts *TimeSet, thresholds []int, interval float64) map[string]float64 {
	out := make(map[string]float64)

	n := len(ts.Samples)
	if n == 0 {
		out["count"] = 0
		out["count_ps"] = 0
		return out
	}

	samples := make([]float64, n)
	copy(samples, ts.Samples)
	sort.Float64s(samples)

	min := samples[0]
	max := samples[n-1]

	cumulative := make([]float64, n)
	cumulative[0] = samples[0]
	for i := 1; i < n; i++ {
		cumulative[i] = cumulative[i-1] + samples[i]
	}

	for _, threshold := range thresholds {
		absT := threshold
		if absT < 0 {
			absT = -absT
		}

		// For a single sample there is nothing to bound: the whole set is
		// the window, and boundary/sum/mean all collapse to that sample.
		k := n
		boundary := max
		sum := samples[0]
		mean := min

		if n > 1 {
			k = int(float64(absT) / 100.0 * float64(n))
			if k == 0 {
				continue
			}
			if k > n {
				k = n
			}

			if threshold > 0 {
				boundary = samples[k-1]
				sum = cumulative[k-1]
			} else {
				boundary = samples[n-k]
				if n-k-1 < 0 {
					sum = cumulative[n-1]
				} else {
					sum = cumulative[n-1] - cumulative[n-k-1]
				}
			}
			mean = sum / float64(k)
		}

		out[statName("count", absT)] = float64(k)
		out[statName("mean", absT)] = mean
		out[statName("sum", absT)] = sum
		if threshold > 0 {
			out[statName("upper", absT)] = boundary
		} else {
			out[statName("lower", absT)] = boundary
		}
	}

	sum := cumulative[n-1]
	mean := sum / float64(n)
	var median float64
	if n%2 == 1 {
		median = samples[n/2]
	} else {
		median = (samples[n/2-1] + samples[n/2]) / 2.0
	}

	out["upper"] = max
	out["lower"] = min
	out["count"] = ts.Effective
	out["count_ps"] = ts.Effective / interval
	out["sum"] = sum
	out["mean"] = mean
	out["median"] = median

	return out
}

// statName builds e.g. "mean_90", "upper_95", "lower_95".
func statName(prefix string, absThreshold int) string {
	return prefix + "_" + strconv.Itoa(absThreshold)
}
