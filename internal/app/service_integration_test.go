package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/castform/internal/app"
	"github.com/okian/castform/internal/domain/model"
)

func TestServiceIntegration_Scenario(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := service.New(ctx, service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		sess, _, err := svc.Open(ctx, "")
		So(err, ShouldBeNil)
		id := sess.ID()

		Convey("When the form is first shown", func() {
			v, err := svc.View(ctx, id)
			So(err, ShouldBeNil)

			Convey("Then it holds the initial actor in the edit view", func() {
				want := model.NewActor(18, "Tom Cruise", "Swordfighting", "CW Productions")
				So(cmp.Diff(want, v.Actor), ShouldBeEmpty)
				So(v.Submitted, ShouldBeFalse)
			})
		})

		Convey("When a new actor is requested", func() {
			v, err := svc.NewActor(ctx, id)
			So(err, ShouldBeNil)

			Convey("Then the record is blank without a studio", func() {
				So(cmp.Diff(model.Actor{ID: 42}, v.Actor), ShouldBeEmpty)
				So(v.Submitted, ShouldBeFalse)
			})

			Convey("And once filled in and submitted the summary holds the same record", func() {
				_, _ = svc.Input(ctx, id, "name", "Marilyn Monroe")
				_, _ = svc.Input(ctx, id, "skill", "Singing")
				before, _ := svc.View(ctx, id)

				res, err := svc.Submit(ctx, id, before.Token)
				So(err, ShouldBeNil)
				So(res.View.Submitted, ShouldBeTrue)
				So(cmp.Diff(before.Actor, res.View.Actor), ShouldBeEmpty)
			})
		})
	})
}

func TestServiceIntegration_ConcurrentDoubleSubmit(t *testing.T) {
	Convey("Given one session submitted from many goroutines with the same token", t, func() {
		ctx := context.Background()
		svc := service.New(ctx, service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)

		sess, _, err := svc.Open(ctx, "")
		So(err, ShouldBeNil)
		token := sess.Token()

		var wg sync.WaitGroup
		var mu sync.Mutex
		statuses := map[string]int{}
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := svc.Submit(ctx, sess.ID(), token)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					statuses[fmt.Sprintf("error: %v", err)]++
					return
				}
				statuses[res.Status]++
			}()
		}
		wg.Wait()
		So(svc.Stop(ctx), ShouldBeNil)

		Convey("Then exactly one submission is accepted and journaled", func() {
			So(statuses[service.StatusAccepted], ShouldEqual, 1)
			So(statuses[service.StatusDuplicate], ShouldEqual, 31)
			subs, err := svc.Submissions(ctx, 10)
			So(err, ShouldBeNil)
			So(len(subs), ShouldEqual, 1)
		})
	})
}

func TestServiceIntegration_SubmitRacingInput(t *testing.T) {
	Convey("Given a session whose name is rewritten while it is submitted", t, func() {
		ctx := context.Background()
		svc := service.New(ctx, service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)

		sess, _, err := svc.Open(ctx, "")
		So(err, ShouldBeNil)
		id := sess.ID()
		first, err := svc.Submit(ctx, id, "")
		So(err, ShouldBeNil)
		So(first.Status, ShouldEqual, service.StatusAccepted)

		stop := make(chan struct{})
		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; ; i++ {
					select {
					case <-stop:
						return
					default:
					}
					name := ""
					if (i+w)%2 == 0 {
						name = fmt.Sprintf("Actor %d-%d", w, i)
					}
					_, _ = svc.Input(ctx, id, "name", name)
				}
			}(w)
		}

		accepted := 1
		deadline := time.Now().Add(200 * time.Millisecond)
		for time.Now().Before(deadline) {
			_, _ = svc.Edit(ctx, id)
			res, err := svc.Submit(ctx, id, "")
			if err == nil && res.Status == service.StatusAccepted {
				accepted++
			}
		}
		close(stop)
		wg.Wait()
		So(svc.Stop(ctx), ShouldBeNil)

		Convey("Then every journaled actor was valid when it was accepted", func() {
			subs, err := svc.Submissions(ctx, 100)
			So(err, ShouldBeNil)
			So(len(subs), ShouldEqual, min(accepted, 100))
			for _, s := range subs {
				So(s.Actor.Name, ShouldNotBeEmpty)
			}
		})
	})
}
