// pkg/observe/observe_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test observer attach/detach/notify semantics

package observe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"touchctl/pkg/observe"
)

type recorder struct {
	updates []interface{}
}

func (r *recorder) Update(subject interface{}) {
	r.updates = append(r.updates, subject)
}

func TestNotifyDeliversToAllObservers(t *testing.T) {
	var pub observe.Publisher
	a, b := &recorder{}, &recorder{}

	pub.Attach(a)
	pub.Attach(b)
	pub.Notify("changed")

	assert.Equal(t, []interface{}{"changed"}, a.updates)
	assert.Equal(t, []interface{}{"changed"}, b.updates)
}

func TestAttachIsIdempotent(t *testing.T) {
	var pub observe.Publisher
	r := &recorder{}

	pub.Attach(r)
	pub.Attach(r)
	pub.Notify(nil)

	assert.Len(t, r.updates, 1, "double attach must not double-deliver")
}

func TestDetachStopsDelivery(t *testing.T) {
	var pub observe.Publisher
	kept, dropped := &recorder{}, &recorder{}

	pub.Attach(kept)
	pub.Attach(dropped)
	pub.Detach(dropped)
	pub.Notify(1)

	assert.Len(t, kept.updates, 1)
	assert.Empty(t, dropped.updates)
}

func TestDetachUnknownIsNoOp(t *testing.T) {
	var pub observe.Publisher
	pub.Detach(&recorder{})
	pub.Notify(1) // must not panic with no observers
}

func TestAttachNilIsIgnored(t *testing.T) {
	var pub observe.Publisher
	pub.Attach(nil)
	pub.Notify(1)
}
