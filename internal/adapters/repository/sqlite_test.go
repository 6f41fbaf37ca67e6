package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/encore/internal/adapters/repository"
	"github.com/okian/encore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func fixtureCompetition() model.Competition {
	return model.Competition{
		ID:   1,
		Name: "qualifier",
		Competitors: []model.Competitor{
			{ID: 10, Name: "ada", Duration: 90 * time.Second},
			{ID: 11, Name: "bo", Duration: 2 * time.Minute},
		},
		Rubric: model.Rubric{
			ID: 5,
			Criteria: []model.Criterion{
				{ID: 1, Name: "technique", Weight: 0.6},
				{ID: 2, Name: "musicality", Weight: 0.4},
			},
			Judges: []model.Judge{
				{ID: 1, Name: "first judge", Criteria: []int{1}},
				{ID: 2, Name: "second judge", Criteria: []int{1, 2}},
			},
		},
	}
}

func openStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	store, err := repository.Open(filepath.Join(t.TempDir(), "encore.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreOpen(t *testing.T) {
	Convey("Given a SQLite store", t, func() {
		Convey("When opening with an empty path", func() {
			_, err := repository.Open("  ")

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When opening a fresh database", func() {
			store := openStore(t)

			Convey("Then it pings cleanly", func() {
				So(store.Ping(context.Background()), ShouldBeNil)
			})
		})
	})
}

func TestSessionCompetitions(t *testing.T) {
	Convey("Given a seeded store", t, func() {
		store := openStore(t)
		ctx := context.Background()
		comp := fixtureCompetition()
		So(store.Seed(ctx, 1, []model.Competition{comp}), ShouldBeNil)

		Convey("When loading the session's competitions", func() {
			comps, err := store.SessionCompetitions(ctx, 1)

			Convey("Then the fixture round trips", func() {
				So(err, ShouldBeNil)
				So(comps, ShouldHaveLength, 1)
				So(comps[0].ID, ShouldEqual, 1)
				So(comps[0].Name, ShouldEqual, "qualifier")
				So(comps[0].Competitors, ShouldResemble, comp.Competitors)
				So(comps[0].Rubric.Criteria, ShouldResemble, comp.Rubric.Criteria)
				So(comps[0].Rubric.Judges, ShouldResemble, comp.Rubric.Judges)
			})
		})

		Convey("When loading an unknown session", func() {
			_, err := store.SessionCompetitions(ctx, 99)

			Convey("Then ErrNotFound surfaces", func() {
				So(err, ShouldWrap, repository.ErrNotFound)
			})
		})
	})
}

func TestSessionCompetitionsSkipsEmptyRounds(t *testing.T) {
	Convey("Given a session whose only competition has no entrants", t, func() {
		store := openStore(t)
		ctx := context.Background()
		empty := fixtureCompetition()
		empty.Competitors = nil
		So(store.Seed(ctx, 2, []model.Competition{empty}), ShouldBeNil)

		Convey("When loading the session", func() {
			_, err := store.SessionCompetitions(ctx, 2)

			Convey("Then nothing runnable is found", func() {
				So(err, ShouldWrap, repository.ErrNotFound)
			})
		})
	})
}

func TestNopStore(t *testing.T) {
	Convey("Given the no-op store", t, func() {
		store := repository.NopStore{}
		ctx := context.Background()

		Convey("Then session lookups report not found", func() {
			_, err := store.SessionCompetitions(ctx, 1)
			So(err, ShouldWrap, repository.ErrNotFound)
		})

		Convey("And score saves are silently discarded", func() {
			So(store.SaveScore(ctx, model.ScoreSubmission{}), ShouldBeNil)
			So(store.Ping(ctx), ShouldBeNil)
			So(store.Close(), ShouldBeNil)
		})
	})
}

func TestSaveScore(t *testing.T) {
	Convey("Given a seeded store", t, func() {
		store := openStore(t)
		ctx := context.Background()
		So(store.Seed(ctx, 1, []model.Competition{fixtureCompetition()}), ShouldBeNil)

		sub := model.ScoreSubmission{
			CompetitionID: 1,
			CompetitorID:  10,
			JudgeID:       2,
			Scores: model.Scores{
				{CriterionID: 1, Score: 8.5},
				{CriterionID: 2, Score: 7.0},
			},
		}

		Convey("When saving a submission", func() {
			err := store.SaveScore(ctx, sub)

			Convey("Then it succeeds", func() {
				So(err, ShouldBeNil)
			})

			Convey("And resubmitting the same verdict overwrites in place", func() {
				sub.Scores[0].Score = 9.0
				So(store.SaveScore(ctx, sub), ShouldBeNil)
			})
		})
	})
}
