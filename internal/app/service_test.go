package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/castform/internal/app"
	"github.com/okian/castform/internal/domain/validation"
	"github.com/okian/castform/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New(context.Background())

		Convey("Then it exposes the default skills and is not started", func() {
			So(svc.Skills(), ShouldResemble, []string{"Method Acting", "Singing", "Dancing", "Swordfighting"})
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(context.Background(),
			service.WithWorkerCount(3),
			service.WithQueueSize(10),
			service.WithDedupeSize(100),
			service.WithSessionCapacity(50),
			service.WithSessionShards(2),
			service.WithJournalSize(5),
			service.WithSkills([]string{"Juggling"}),
		)

		Convey("Then the options are applied", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 3)
			So(stats["queueSize"], ShouldEqual, 10)
			So(stats["sessionCapacity"], ShouldEqual, 50)
			So(svc.Skills(), ShouldResemble, []string{"Juggling"})
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx := context.Background()
		svc := service.New(ctx, service.WithWorkerCount(2))

		Convey("When it is started twice and stopped twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			So(svc.GetStats()["queueLength"], ShouldEqual, 0)

			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it ends stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When submitting before start", func() {
			sess, _, err := svc.Open(ctx, "")
			So(err, ShouldBeNil)
			_, err = svc.Submit(ctx, sess.ID(), "")

			Convey("Then ErrNotStarted is returned", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_Open(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		svc := service.New(ctx)

		Convey("When a session is opened without an id", func() {
			sess, created, err := svc.Open(ctx, "")
			So(err, ShouldBeNil)

			Convey("Then a new session is issued", func() {
				So(created, ShouldBeTrue)
				So(sess.ID(), ShouldNotBeEmpty)
				So(svc.GetStats()["sessions"], ShouldEqual, 1)
			})

			Convey("And reopening by id returns the same session", func() {
				again, created, err := svc.Open(ctx, sess.ID())
				So(err, ShouldBeNil)
				So(created, ShouldBeFalse)
				So(again, ShouldEqual, sess)
			})
		})

		Convey("When an unknown id is opened", func() {
			sess, created, err := svc.Open(ctx, "expired")

			Convey("Then a fresh session replaces it", func() {
				So(err, ShouldBeNil)
				So(created, ShouldBeTrue)
				So(sess.ID(), ShouldNotEqual, "expired")
			})
		})

		Convey("When an operation names an unknown session", func() {
			_, err := svc.View(ctx, "missing")

			Convey("Then ErrSessionNotFound is returned", func() {
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_FieldOperations(t *testing.T) {
	Convey("Given an open session", t, func() {
		ctx := context.Background()
		svc := service.New(ctx)
		sess, _, err := svc.Open(ctx, "")
		So(err, ShouldBeNil)
		id := sess.ID()

		Convey("When the name is cleared and blurred", func() {
			v, err := svc.Input(ctx, id, "name", "")
			So(err, ShouldBeNil)
			So(v.Valid, ShouldBeFalse)
			v, err = svc.Blur(ctx, id, "name")
			So(err, ShouldBeNil)

			Convey("Then the name error is shown", func() {
				So(v.Fields[0].ShowError, ShouldBeTrue)
				So(v.Fields[0].Touched, ShouldBeTrue)
				So(v.FormClasses, ShouldEqual, "form-invalid form-dirty")
			})
		})

		Convey("When an unknown field is written", func() {
			_, err := svc.Input(ctx, id, "id", "7")

			Convey("Then ErrUnknownField is returned", func() {
				So(errors.Is(err, validation.ErrUnknownField), ShouldBeTrue)
				_, err = svc.Blur(ctx, id, "age")
				So(errors.Is(err, validation.ErrUnknownField), ShouldBeTrue)
			})
		})

		Convey("When a new actor is requested", func() {
			v, err := svc.NewActor(ctx, id)
			So(err, ShouldBeNil)

			Convey("Then the blank record is shown pristine", func() {
				So(v.Actor.ID, ShouldEqual, 42)
				So(v.Actor.Name, ShouldBeEmpty)
				So(v.Actor.Studio, ShouldBeNil)
				So(v.Pristine, ShouldBeTrue)
				So(v.Submitted, ShouldBeFalse)
			})
		})

		Convey("When the sample actor is requested", func() {
			a, err := svc.Sample(ctx, id)
			So(err, ShouldBeNil)

			Convey("Then it is returned without changing the session", func() {
				So(a.Name, ShouldEqual, "Marilyn Monroe")
				v, _ := svc.View(ctx, id)
				So(v.Actor.Name, ShouldEqual, "Tom Cruise")
			})
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service with an open session", t, func() {
		ctx := context.Background()
		svc := service.New(ctx, service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		sess, _, err := svc.Open(ctx, "")
		So(err, ShouldBeNil)
		id := sess.ID()
		token := sess.Token()

		Convey("When the valid form is submitted", func() {
			res, err := svc.Submit(ctx, id, token)
			So(err, ShouldBeNil)

			Convey("Then it is accepted and the summary view is shown", func() {
				So(res.Status, ShouldEqual, service.StatusAccepted)
				So(res.SubmissionID, ShouldNotBeEmpty)
				So(res.View.Submitted, ShouldBeTrue)
				So(res.View.Token, ShouldNotEqual, token)
			})

			Convey("And replaying the same token is a duplicate", func() {
				again, err := svc.Submit(ctx, id, token)
				So(err, ShouldBeNil)
				So(again.Status, ShouldEqual, service.StatusDuplicate)
			})

			Convey("And the submission reaches the journal", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				subs, err := svc.Submissions(ctx, 10)
				So(err, ShouldBeNil)
				So(len(subs), ShouldEqual, 1)
				So(subs[0].ID, ShouldEqual, res.SubmissionID)
				So(subs[0].Actor.Name, ShouldEqual, "Tom Cruise")
				So(subs[0].SessionID, ShouldEqual, id)
			})

			Convey("And edit returns to the edit view", func() {
				v, err := svc.Edit(ctx, id)
				So(err, ShouldBeNil)
				So(v.Submitted, ShouldBeFalse)
				So(v.Actor.Name, ShouldEqual, "Tom Cruise")
			})
		})

		Convey("When an invalid form is submitted", func() {
			_, _ = svc.NewActor(ctx, id)
			_, err := svc.Submit(ctx, id, "")

			Convey("Then it is refused and may be retried once valid", func() {
				So(errors.Is(err, service.ErrFormInvalid), ShouldBeTrue)
				_, _ = svc.Input(ctx, id, "name", "Meryl Streep")
				_, _ = svc.Input(ctx, id, "skill", "Method Acting")
				res, err := svc.Submit(ctx, id, "")
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, service.StatusAccepted)
			})
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a service whose queue holds one submission", t, func() {
		ctx := context.Background()
		svc := service.New(ctx, service.WithQueueSize(1), service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When many sessions submit at once", func() {
			var accepted, refused int
			for i := 0; i < 200; i++ {
				sess, _, err := svc.Open(ctx, "")
				So(err, ShouldBeNil)
				res, err := svc.Submit(ctx, sess.ID(), "")
				switch {
				case err == nil && res.Status == service.StatusAccepted:
					accepted++
				case errors.Is(err, service.ErrBackpressure):
					refused++
					v, _ := svc.View(ctx, sess.ID())
					So(v.Submitted, ShouldBeFalse)
				}
			}

			Convey("Then every submit is either accepted or refused with backpressure", func() {
				So(accepted+refused, ShouldEqual, 200)
				So(accepted, ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestService_Submissions(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := service.New(context.Background())

		Convey("When a non-positive limit is requested", func() {
			_, err := svc.Submissions(context.Background(), 0)

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestService_StopDrains(t *testing.T) {
	Convey("Given a started service with queued submissions", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		svc := service.New(ctx, service.WithWorkerCount(2), service.WithQueueSize(100))
		So(svc.Start(ctx), ShouldBeNil)

		for i := 0; i < 20; i++ {
			sess, _, err := svc.Open(ctx, "")
			So(err, ShouldBeNil)
			_, err = svc.Submit(ctx, sess.ID(), "")
			So(err, ShouldBeNil)
		}

		Convey("When the service stops", func() {
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then every submission is journaled", func() {
				So(svc.GetStats()["submissions"], ShouldEqual, 20)
			})
		})
	})
}
