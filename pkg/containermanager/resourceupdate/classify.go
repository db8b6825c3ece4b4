/*
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

// Package resourceupdate implements the pure function that decides whether
// a running container's resource needs to change on the RM side, and in
// which direction.
package resourceupdate

import "github.com/tech-jum/primus/pkg/containermanager/resource"

// Verdict is the outcome of classifying a (current, target) resource pair.
type Verdict string

const (
	None     Verdict = "NONE"
	Increase Verdict = "INCREASE"
	Decrease Verdict = "DECREASE"
)

// Classify maps (current, target) to an update verdict. current and target
// are rounded up to the nearest GiB of memory before comparison, since the
// RM only allocates in 1 GiB increments and comparing at finer resolution
// produces updates the RM will reject. A mixed-dimension change (one
// component up, the other down) is not expressible as a single RM request
// and classifies as None; the next heartbeat re-evaluates once RoleCatalog
// converges.
func Classify(current, target resource.Resource) Verdict {
	if current.IsZero() || target.IsZero() {
		return None
	}

	cur := current.RoundMemoryMiB()
	tgt := target.RoundMemoryMiB()

	curFitsTgt := cur.FitsIn(tgt)
	tgtFitsCur := tgt.FitsIn(cur)

	switch {
	case curFitsTgt && tgtFitsCur:
		return None
	case tgtFitsCur:
		return Decrease
	case curFitsTgt:
		return Increase
	default:
		return None
	}
}
