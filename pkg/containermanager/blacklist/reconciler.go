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

// Package blacklist computes the add/remove deltas between the tracker's
// current node blacklist and the last set the resource manager was told
// about.
package blacklist

import (
	"sort"

	"github.com/samber/lo"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Delta is the set of nodes to add to, and remove from, the RM's
// blacklist in order to bring it in line with the tracker's current view.
type Delta struct {
	Additions []string
	Removals  []string
}

// Empty reports whether both sides of the delta are empty.
func (d Delta) Empty() bool {
	return len(d.Additions) == 0 && len(d.Removals) == 0
}

// Reconciler computes deltas against a remembered set P, owned entirely by
// the control loop: it is never read or written by any other goroutine, so
// it needs no internal locking.
type Reconciler struct {
	current sets.Set[string]
}

// New returns a Reconciler with an empty remembered set.
func New() *Reconciler {
	return &Reconciler{current: sets.New[string]()}
}

// Reconcile computes additions = latest \ current and removals = current \
// latest. A nil latest (an absent BlacklistTracker) is treated as an empty
// set. The remembered set is not updated here: callers call Commit once the
// RM has accepted the delta, so a failed RM call leaves the baseline
// unchanged.
func (r *Reconciler) Reconcile(latest []string) Delta {
	next := sets.New(latest...)

	additions := next.Difference(r.current).UnsortedList()
	removals := r.current.Difference(next).UnsortedList()
	sort.Strings(additions)
	sort.Strings(removals)

	return Delta{
		Additions: lo.Ternary(len(additions) == 0, []string{}, additions),
		Removals:  lo.Ternary(len(removals) == 0, []string{}, removals),
	}
}

// Commit replaces the remembered set with latest, to be called once the RM
// has acknowledged the delta produced by the matching Reconcile call.
func (r *Reconciler) Commit(latest []string) {
	r.current = sets.New(latest...)
}

// Current returns the remembered set as it stood after the last Commit,
// primarily for tests asserting invariant 3 of the spec.
func (r *Reconciler) Current() []string {
	out := r.current.UnsortedList()
	sort.Strings(out)
	return out
}
