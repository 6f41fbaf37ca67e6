package pool_test

import (
	"sync"
	"testing"

	pool "github.com/okian/encore/internal/domain/pool"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeClient is a minimal Client for pool tests.
type fakeClient struct {
	id string
}

func (c *fakeClient) ID() string                { return c.id }
func (c *fakeClient) Send(string, []byte) error { return nil }

func TestPool(t *testing.T) {
	Convey("Given an empty pool", t, func() {
		p := pool.New()

		Convey("Then it has no clients", func() {
			So(p.Len(), ShouldEqual, 0)
			So(p.IDs(), ShouldBeEmpty)
		})

		Convey("When putting a client", func() {
			c := &fakeClient{id: "judge1"}
			p.Put(c)

			Convey("Then Get finds it without removing it", func() {
				got, ok := p.Get("judge1")
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, c)
				So(p.Len(), ShouldEqual, 1)
			})

			Convey("And Take removes it", func() {
				got, ok := p.Take("judge1")
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, c)
				So(p.Len(), ShouldEqual, 0)

				_, ok = p.Take("judge1")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When putting a client twice under the same id", func() {
			first := &fakeClient{id: "dj0"}
			second := &fakeClient{id: "dj0"}
			p.Put(first)
			p.Put(second)

			Convey("Then the newer handle replaces the older one", func() {
				got, ok := p.Get("dj0")
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, second)
				So(p.Len(), ShouldEqual, 1)
			})
		})

		Convey("When removing a client", func() {
			p.Put(&fakeClient{id: "sb10"})
			p.Remove("sb10")

			Convey("Then it is gone", func() {
				_, ok := p.Get("sb10")
				So(ok, ShouldBeFalse)
			})

			Convey("And removing an absent id is a no-op", func() {
				So(func() { p.Remove("sb10") }, ShouldNotPanic)
			})
		})

		Convey("When many goroutines race Take on the same id", func() {
			p.Put(&fakeClient{id: "judge3"})

			var wg sync.WaitGroup
			var mu sync.Mutex
			wins := 0
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, ok := p.Take("judge3"); ok {
						mu.Lock()
						wins++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one claim succeeds", func() {
				So(wins, ShouldEqual, 1)
				So(p.Len(), ShouldEqual, 0)
			})
		})
	})
}
