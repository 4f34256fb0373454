package scenario_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/castform/internal/adapters/http/api"
	service "github.com/okian/castform/internal/app"
	"github.com/okian/castform/internal/scenario"
	"github.com/okian/castform/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRunner(t *testing.T) {
	Convey("Given a running castform API", t, func() {
		ctx := context.Background()
		svc := service.New(ctx, service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		ts := httptest.NewServer(mux)
		defer ts.Close()

		Convey("When the walkthrough runs", func() {
			r, err := scenario.New(ts.URL + "/")
			So(err, ShouldBeNil)
			steps, err := r.Run(ctx)

			Convey("Then every step passes", func() {
				So(err, ShouldBeNil)
				So(len(steps), ShouldEqual, 7)
				for _, s := range steps {
					So(s.Passed, ShouldBeTrue)
				}
			})

			Convey("And the blank record is seen without the earlier studio", func() {
				So(steps[1].Name, ShouldEqual, "new record")
				So(steps[1].Passed, ShouldBeTrue)
				So(steps[1].Detail, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a server that is not castform", t, func() {
		ts := httptest.NewServer(http.NotFoundHandler())
		defer ts.Close()

		Convey("When the walkthrough runs", func() {
			r, err := scenario.New(ts.URL)
			So(err, ShouldBeNil)
			steps, err := r.Run(context.Background())

			Convey("Then it stops at the first step", func() {
				So(errors.Is(err, scenario.ErrStepFailed), ShouldBeTrue)
				So(len(steps), ShouldEqual, 1)
				So(steps[0].Passed, ShouldBeFalse)
				So(steps[0].Detail, ShouldContainSubstring, "404")
			})
		})
	})
}
