package session_test

import (
	"context"
	"testing"

	session "github.com/okian/encore/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDirectory(t *testing.T) {
	Convey("Given an empty directory", t, func() {
		h := newHarness()

		Convey("Then it has no sessions", func() {
			So(h.directory.Len(), ShouldEqual, 0)
			So(h.directory.Running(), ShouldBeEmpty)
		})

		Convey("When creating a session", func() {
			s := h.session(t, 1)

			Convey("Then it is discoverable by id", func() {
				got, ok := h.directory.Get(1)
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, s)
				So(h.directory.Len(), ShouldEqual, 1)
			})

			Convey("And a second create under the same id fails", func() {
				_, err := h.directory.Create(1, session.Deps{
					Pool:       h.pool,
					Rendezvous: h.rendezvous,
					SaveScore:  h.recorder.save,
				})
				So(err, ShouldWrap, session.ErrSessionExists)
			})

			Convey("And deleting it removes discoverability", func() {
				h.directory.Delete(1)
				_, ok := h.directory.Get(1)
				So(ok, ShouldBeFalse)
				So(h.directory.Len(), ShouldEqual, 0)
			})
		})

		Convey("When a session holds a roster slot", func() {
			s := h.session(t, 2)
			s.RegisterPermanentClients(context.Background(), []string{"dj0", "sb10"})

			Convey("Then FindOwnerOf routes the slot's clients to it", func() {
				owner, ok := h.directory.FindOwnerOf("dj0")
				So(ok, ShouldBeTrue)
				So(owner, ShouldEqual, s)

				// Slot existence counts even while disconnected.
				owner, ok = h.directory.FindOwnerOf("sb10")
				So(ok, ShouldBeTrue)
				So(owner, ShouldEqual, s)
			})

			Convey("And unknown clients have no owner", func() {
				_, ok := h.directory.FindOwnerOf("judge9")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When clearing the directory", func() {
			h.session(t, 3)
			h.session(t, 4)
			h.directory.ClearAll()

			Convey("Then everything is gone", func() {
				So(h.directory.Len(), ShouldEqual, 0)
			})
		})
	})
}
