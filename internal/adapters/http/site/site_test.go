package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/castform/internal/adapters/http/api"
	service "github.com/okian/castform/internal/app"
	"github.com/okian/castform/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type browser struct {
	mux    *http.ServeMux
	cookie *http.Cookie
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	return b.send(req)
}

func (b *browser) post(form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.send(req)
}

func (b *browser) send(req *http.Request) *httptest.ResponseRecorder {
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	w := httptest.NewRecorder()
	b.mux.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		b.cookie = ck
	}
	return w
}

func newBrowser(ctx context.Context) (*browser, *service.Service) {
	svc := service.New(ctx, service.WithWorkerCount(1))
	So(svc.Start(ctx), ShouldBeNil)
	mux := http.NewServeMux()
	Register(ctx, mux, NewHandler(svc, api.SessionCookie{Name: "castform_session"}))
	return &browser{mux: mux}, svc
}

func TestSite_EditView(t *testing.T) {
	Convey("Given a first visit", t, func() {
		ctx := context.Background()
		b, svc := newBrowser(ctx)
		defer func() { _ = svc.Stop(ctx) }()

		w := b.get("/")

		Convey("Then the edit view shows the initial actor", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			body := w.Body.String()
			So(body, ShouldContainSubstring, `value="Tom Cruise"`)
			So(body, ShouldContainSubstring, `<option value="Swordfighting" selected>`)
			So(body, ShouldContainSubstring, `value="CW Productions"`)
			So(body, ShouldContainSubstring, "form-valid form-pristine")
			So(body, ShouldNotContainSubstring, "disabled")
			So(b.cookie, ShouldNotBeNil)
		})

		Convey("And unknown paths are not found", func() {
			So(b.get("/missing").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSite_Scenario(t *testing.T) {
	Convey("Given a visitor on the edit view", t, func() {
		ctx := context.Background()
		b, svc := newBrowser(ctx)
		defer func() { _ = svc.Stop(ctx) }()
		b.get("/")

		Convey("When New Actor is pressed", func() {
			w := b.post(url.Values{"action": {"new"}})
			So(w.Code, ShouldEqual, http.StatusSeeOther)
			body := b.get("/").Body.String()

			Convey("Then the blank form is shown with submit disabled and no errors", func() {
				So(body, ShouldContainSubstring, `id="name" name="name" required value=""`)
				So(body, ShouldContainSubstring, "disabled")
				So(body, ShouldNotContainSubstring, "name-error")
			})

			Convey("And submitting anyway keeps the edit view", func() {
				w := b.post(url.Values{"action": {"submit"}})
				So(w.Code, ShouldEqual, http.StatusSeeOther)
				So(b.get("/").Body.String(), ShouldNotContainSubstring, "You submitted the following")
			})

			Convey("And checking the filled-in form enables submit", func() {
				w := b.post(url.Values{
					"action": {"apply"},
					"name":   {"Ann"},
					"skill":  {"Singing"},
					"studio": {""},
				})
				So(w.Code, ShouldEqual, http.StatusSeeOther)
				So(w.Header().Get("Location"), ShouldEqual, "/")

				body := b.get("/").Body.String()
				So(body, ShouldContainSubstring, `value="Ann"`)
				So(body, ShouldContainSubstring, `<option value="Singing" selected>`)
				So(body, ShouldContainSubstring, `value="submit">Submit</button>`)
				So(body, ShouldNotContainSubstring, "disabled")

				Convey("And pressing the now enabled submit shows the summary", func() {
					b.post(url.Values{
						"action": {"submit"},
						"name":   {"Ann"},
						"skill":  {"Singing"},
						"studio": {""},
					})
					body := b.get("/").Body.String()
					So(body, ShouldContainSubstring, "You submitted the following")
					So(body, ShouldContainSubstring, "<dd>Ann</dd>")
					So(body, ShouldContainSubstring, "<dd>Singing</dd>")
				})
			})

			Convey("And filling it in and submitting shows the summary", func() {
				w := b.post(url.Values{
					"action": {"submit"},
					"name":   {"Marilyn Monroe"},
					"skill":  {"Singing"},
					"studio": {""},
				})
				So(w.Code, ShouldEqual, http.StatusSeeOther)
				So(w.Header().Get("Location"), ShouldEqual, "/")

				body := b.get("/").Body.String()
				So(body, ShouldContainSubstring, "You submitted the following")
				So(body, ShouldContainSubstring, "<dd>Marilyn Monroe</dd>")

				Convey("And Edit returns to the form with the record unchanged", func() {
					b.post(url.Values{"action": {"edit"}})
					body := b.get("/").Body.String()
					So(body, ShouldContainSubstring, `value="Marilyn Monroe"`)
					So(body, ShouldNotContainSubstring, "You submitted the following")
				})
			})
		})

		Convey("When the name is cleared and the form posted", func() {
			b.post(url.Values{"action": {"submit"}, "name": {""}})
			body := b.get("/").Body.String()

			Convey("Then the name error is visible", func() {
				So(body, ShouldContainSubstring, `id="name-error"`)
				So(body, ShouldContainSubstring, "Name is required")
				So(body, ShouldContainSubstring, "field-invalid field-dirty field-touched")
				So(body, ShouldContainSubstring, "form-invalid form-dirty")
			})
		})

		Convey("When Sample is pressed", func() {
			w := b.post(url.Values{"action": {"sample"}})
			So(w.Header().Get("Location"), ShouldEqual, "/?sample=1")
			body := b.get("/?sample=1").Body.String()

			Convey("Then the sample actor is shown next to the unchanged form", func() {
				So(body, ShouldContainSubstring, "Sample actor: Marilyn Monroe (Singing)")
				So(body, ShouldContainSubstring, `value="Tom Cruise"`)
			})
		})

		Convey("When an unknown action is posted", func() {
			w := b.post(url.Values{"action": {"delete"}})

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestSiteHandlerWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		svc := service.New(context.Background())

		Convey("Then Register panics", func() {
			So(func() {
				Register(context.Background(), nil, NewHandler(svc, api.SessionCookie{}))
			}, ShouldPanic)
		})
	})
}

func TestSiteErrors(t *testing.T) {
	Convey("Given site error constants", t, func() {
		So(ErrRender.Error(), ShouldEqual, "form render failed")
		So(ErrAction, ShouldNotEqual, ErrRender)
	})
}
