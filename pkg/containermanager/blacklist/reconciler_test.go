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

package blacklist_test

import (
	"reflect"
	"testing"

	"github.com/tech-jum/primus/pkg/containermanager/blacklist"
)

// TestChurn exercises S3 from the spec: three successive tracker views
// produce the exact add/remove deltas, in order, that the control loop
// passes to the RM.
func TestChurn(t *testing.T) {
	r := blacklist.New()

	step := func(latest []string, wantAdd, wantRemove []string) {
		t.Helper()
		d := r.Reconcile(latest)
		if !reflect.DeepEqual(d.Additions, wantAdd) {
			t.Fatalf("additions: got %v want %v", d.Additions, wantAdd)
		}
		if !reflect.DeepEqual(d.Removals, wantRemove) {
			t.Fatalf("removals: got %v want %v", d.Removals, wantRemove)
		}
		r.Commit(latest)
	}

	step([]string{"n1", "n2"}, []string{"n1", "n2"}, []string{})
	step([]string{"n2", "n3"}, []string{"n3"}, []string{"n1"})
	step([]string{}, []string{}, []string{"n2", "n3"})
}

func TestAbsentTrackerYieldsEmptyLatest(t *testing.T) {
	r := blacklist.New()
	r.Commit([]string{"n1"})

	d := r.Reconcile(nil)
	if !reflect.DeepEqual(d.Removals, []string{"n1"}) {
		t.Fatalf("expected removal of n1 for an absent/empty tracker, got %v", d.Removals)
	}
	if !d.Empty() && len(d.Additions) != 0 {
		t.Fatalf("expected no additions, got %v", d.Additions)
	}
}

func TestNoChangeIsEmptyDelta(t *testing.T) {
	r := blacklist.New()
	r.Commit([]string{"n1", "n2"})
	d := r.Reconcile([]string{"n2", "n1"})
	if !d.Empty() {
		t.Fatalf("expected empty delta for an unchanged (reordered) set, got %+v", d)
	}
}
