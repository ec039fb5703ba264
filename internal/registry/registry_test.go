package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id       string
	userID   int
	received [][]byte
	stalled  bool
}

func newFakeConn(userID int) *fakeConn {
	return &fakeConn{id: fmt.Sprintf("conn-%d", userID), userID: userID}
}

func (c *fakeConn) ID() string     { return c.id }
func (c *fakeConn) UserID() int    { return c.userID }
func (c *fakeConn) Send(data []byte) bool {
	if c.stalled {
		return false
	}
	c.received = append(c.received, data)
	return true
}

func TestBroadcastReachesSubscribersOnly(t *testing.T) {
	req := require.New(t)
	reg := New()

	member := newFakeConn(1)
	other := newFakeConn(2)
	reg.Subscribe(member, 10)
	reg.Subscribe(other, 20)

	reg.BroadcastLocal(10, []byte("hello"))

	req.Len(member.received, 1)
	req.Equal([]byte("hello"), member.received[0])
	req.Empty(other.received)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	req := require.New(t)
	reg := New()

	c := newFakeConn(1)
	reg.Subscribe(c, 10)
	req.True(reg.Contains(c, 10))

	reg.Unsubscribe(c, 10)
	req.False(reg.Contains(c, 10))
	req.Equal(0, reg.Count(10))

	reg.BroadcastLocal(10, []byte("hello"))
	req.Empty(c.received)
}

func TestDropReturnsAllRooms(t *testing.T) {
	req := require.New(t)
	reg := New()

	c := newFakeConn(1)
	reg.Subscribe(c, 10)
	reg.Subscribe(c, 20)
	reg.Subscribe(c, 30)

	roomIDs := reg.Drop(c)
	req.ElementsMatch([]int{10, 20, 30}, roomIDs)

	for _, roomID := range []int{10, 20, 30} {
		req.False(reg.Contains(c, roomID))
		req.Equal(0, reg.Count(roomID))
	}
}

func TestSlowConsumerIsDropped(t *testing.T) {
	req := require.New(t)
	reg := New()

	healthy := newFakeConn(1)
	slow := newFakeConn(2)
	slow.stalled = true
	reg.Subscribe(healthy, 10)
	reg.Subscribe(slow, 10)
	reg.Subscribe(slow, 20)

	reg.BroadcastLocal(10, []byte("hello"))

	// The healthy connection still gets the payload; the stalled one is
	// evicted from every room, not just the broadcast room.
	req.Len(healthy.received, 1)
	req.False(reg.Contains(slow, 10))
	req.False(reg.Contains(slow, 20))
	req.True(reg.Contains(healthy, 10))
}

func TestSubscribeIsIdempotent(t *testing.T) {
	req := require.New(t)
	reg := New()

	c := newFakeConn(1)
	reg.Subscribe(c, 10)
	reg.Subscribe(c, 10)

	req.Equal(1, reg.Count(10))

	reg.BroadcastLocal(10, []byte("once"))
	req.Len(c.received, 1)
}
