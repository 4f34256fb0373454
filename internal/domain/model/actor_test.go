package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/okian/castform/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestNewActor(t *testing.T) {
	convey.Convey("Given NewActor", t, func() {
		convey.Convey("When constructing with all four values", func() {
			a := model.NewActor(18, "Tom Cruise", "Swordfighting", "CW Productions")

			convey.Convey("Then it stores them unchanged", func() {
				convey.So(a.ID, convey.ShouldEqual, 18)
				convey.So(a.Name, convey.ShouldEqual, "Tom Cruise")
				convey.So(a.Skill, convey.ShouldEqual, "Swordfighting")
				convey.So(a.Studio, convey.ShouldNotBeNil)
				convey.So(*a.Studio, convey.ShouldEqual, "CW Productions")
			})
		})

		convey.Convey("When the studio is omitted", func() {
			a := model.NewActor(42, "", "")

			convey.Convey("Then the studio is absent", func() {
				convey.So(a.ID, convey.ShouldEqual, 42)
				convey.So(a.Name, convey.ShouldBeEmpty)
				convey.So(a.Skill, convey.ShouldBeEmpty)
				convey.So(a.Studio, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the studio is an empty string", func() {
			a := model.NewActor(1, "x", "y", "")

			convey.Convey("Then it is present but empty, not absent", func() {
				convey.So(a.Studio, convey.ShouldNotBeNil)
				convey.So(*a.Studio, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When values are unusual", func() {
			a := model.NewActor(-7, "  ", "Juggling")

			convey.Convey("Then nothing is validated or normalized", func() {
				convey.So(a.ID, convey.ShouldEqual, -7)
				convey.So(a.Name, convey.ShouldEqual, "  ")
				convey.So(a.Skill, convey.ShouldEqual, "Juggling")
			})
		})
	})
}

func TestActorJSON(t *testing.T) {
	convey.Convey("Given an actor without a studio", t, func() {
		b, err := json.Marshal(model.NewActor(42, "", ""))

		convey.Convey("Then the studio key is omitted", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(b), convey.ShouldEqual, `{"id":42,"name":"","skill":""}`)
		})
	})
}
