/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package policy

import (
	"fmt"
	"strings"
)

// Backpressure selects what a producer does when the ingest command
// channel is full. Unlike apis/sink/policy.Backpressure (three variants,
// used by the diagnostics sink), the ingest channel exposes exactly two.
type Backpressure uint8

const (
	// Block suspends the producer until a slot frees.
	Block Backpressure = iota

	// Discard drops the command immediately and counts it.
	Discard
)

// String returns the canonical lowercase name.
func (b Backpressure) String() string {
	switch b {
	case Block:
		return "block"
	case Discard:
		return "discard"
	default:
		return fmt.Sprintf("backpressure(%d)", uint8(b))
	}
}

// ParseBackpressure parses the configuration value for backpressure_policy.
func ParseBackpressure(s string) (Backpressure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block":
		return Block, nil
	case "discard":
		return Discard, nil
	default:
		return 0, fmt.Errorf("ingest/policy: invalid backpressure_policy %q", s)
	}
}
