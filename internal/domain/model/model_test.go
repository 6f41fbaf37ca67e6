package model_test

import (
	"testing"

	model "github.com/okian/encore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseClientID(t *testing.T) {
	Convey("Given the client id grammar", t, func() {
		Convey("When parsing valid ids", func() {
			cases := []struct {
				id   string
				role model.Role
				n    int
			}{
				{"dj0", model.RoleDJ, 0},
				{"dj", model.RoleDJ, 0},
				{"judge2", model.RoleJudge, 2},
				{"judge12", model.RoleJudge, 12},
				{"sb10", model.RoleScoreboard, 10},
			}
			for _, tc := range cases {
				role, n, err := model.ParseClientID(tc.id)
				So(err, ShouldBeNil)
				So(role, ShouldEqual, tc.role)
				So(n, ShouldEqual, tc.n)
			}
		})

		Convey("When parsing invalid ids", func() {
			for _, id := range []string{"", "judge-1", "DJ0", "host3", "judge2x", " dj0"} {
				_, _, err := model.ParseClientID(id)
				So(err, ShouldWrap, model.ErrInvalidClientID)
			}
		})

		Convey("When formatting roster keys", func() {
			So(model.JudgeClientID(3), ShouldEqual, "judge3")
			So(model.RoleDJ.ClientID(0), ShouldEqual, "dj0")
			So(model.RoleScoreboard.ClientID(10), ShouldEqual, "sb10")
		})
	})
}

func TestCompetitionJudgeClientIDs(t *testing.T) {
	Convey("Given a competition with a rubric", t, func() {
		comp := model.Competition{
			ID:   1,
			Name: "finals",
			Rubric: model.Rubric{
				ID: 9,
				Judges: []model.Judge{
					{ID: 1, Name: "A", Criteria: []int{1, 2}},
					{ID: 3, Name: "B", Criteria: []int{3}},
				},
			},
		}

		Convey("When listing judge client ids", func() {
			ids := comp.JudgeClientIDs()

			Convey("Then the ids follow rubric order", func() {
				So(ids, ShouldResemble, []string{"judge1", "judge3"})
			})
		})
	})
}
