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

package metric

import (
	"log"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ReportMetric is the name of the synthetic self-report line injected once
// per non-empty datagram, counting the datagram's byte size.
const ReportMetric = "statsd.recv"

// ParseDatagram splits data on '\n' and emits one Line per well-formed
// segment via emit, plus a trailing synthetic ReportMetric Count line sized
// at len(data) when data is non-empty. A trailing, unterminated line (no
// final '\n') is still parsed and emitted. Malformed lines are dropped with
// a logged warning and a call to onDrop; they never abort the rest of the
// datagram.
//
// emit and onDrop are called synchronously on the parsing goroutine; neither
// must block for long, since the receiver holds no other buffering for this
// datagram.
func ParseDatagram(data []byte, emit func(Line), onDrop func()) {
	if len(data) == 0 {
		return
	}

	segments := strings.Split(string(data), "\n")
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		line, ok := parseLine(seg)
		if !ok {
			onDrop()
			continue
		}
		emit(line)
	}

	emit(Line{Metric: ReportMetric, Kind: Count(float64(len(data)))})
}

// parseLine parses a single "metric:value|type[|@rate]" segment. A segment
// with no '|' at all ("metric:value") is read as a counter. Returns
// ok=false if the segment must be dropped per §4.1: missing ':', empty
// metric, unparseable or non-positive rate, unrecognized type token, or
// invalid UTF-8 metric.
func parseLine(seg string) (Line, bool) {
	colon := strings.IndexByte(seg, ':')
	if colon < 0 {
		log.Printf("metric: dropping line with no ':': %q", seg)
		return Line{}, false
	}
	metric := strings.TrimSpace(seg[:colon])
	rest := seg[colon+1:]

	var valueStr, typeStr, rateStr string
	bar := strings.IndexByte(rest, '|')
	if bar < 0 {
		// No type segment: the whole remainder is the value and the line is
		// read like an empty type token, i.e. as a counter.
		valueStr = strings.TrimSpace(rest)
		rateStr = "1.0"
	} else {
		valueStr = strings.TrimSpace(rest[:bar])
		rest = rest[bar+1:]
		if next := strings.IndexByte(rest, '|'); next >= 0 {
			typeStr = strings.TrimSpace(rest[:next])
			rateStr = strings.TrimSpace(rest[next+1:])
			rateStr = strings.TrimPrefix(rateStr, "@")
			rateStr = strings.TrimSpace(rateStr)
		} else {
			typeStr = strings.TrimSpace(rest)
			rateStr = "1.0"
		}
	}

	if !utf8.ValidString(metric) {
		log.Printf("metric: dropping line with invalid UTF-8 metric")
		return Line{}, false
	}
	if metric == "" {
		log.Printf("metric: dropping line with empty metric name: %q", seg)
		return Line{}, false
	}

	rate, err := strconv.ParseFloat(rateStr, 64)
	if err != nil {
		log.Printf("metric: dropping line with unparseable rate %q: %v", rateStr, err)
		return Line{}, false
	}
	if rate <= 0 {
		log.Printf("metric: dropping line with non-positive rate %v", rate)
		return Line{}, false
	}

	switch typeStr {
	case "c", "":
		value, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			value = 1.0
		}
		return Line{Metric: metric, Kind: Count(value / rate)}, true
	case "ms":
		value, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			value = 0.0
		}
		return Line{Metric: metric, Kind: Timer(value, 1.0/rate)}, true
	case "g":
		value, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			value = 0.0
		}
		return Line{Metric: metric, Kind: Gauge(value)}, true
	default:
		log.Printf("metric: dropping line with unrecognized type %q: %q", typeStr, seg)
		return Line{}, false
	}
}
