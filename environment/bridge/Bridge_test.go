package bridge

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/samuelfneumann/dotarl/environment"
)

// runBot connects a bot to the bridge served at url. The bot walks one
// unit along x per action, and its episodes end at x = 3. Replies to
// the command numbered badAt, if positive, carry a malformed
// observation.
func runBot(t *testing.T, url string, badAt int) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(url, "http")+"/bot", nil)
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		defer conn.Close()
		x := 0.0
		for n := 1; ; n++ {
			var c command
			if err := conn.ReadJSON(&c); err != nil {
				return
			}

			var r reply
			switch c.Type {
			case "reset":
				x = 0
				r = reply{Observation: []float64{x, 0, 0}}
			case "act":
				x++
				r = reply{Observation: []float64{x, 0, float64(*c.Action)},
					Reward: -1, Done: x >= 3}
			}
			if n == badAt {
				r.Observation = []float64{1}
			}
			if err := conn.WriteJSON(r); err != nil {
				return
			}
		}
	}()
}

func testConfig() Config {
	c := DefaultConfig()
	c.ConnectTimeout = 5 * time.Second
	c.StepTimeout = 5 * time.Second
	return c
}

func TestBridge(t *testing.T) {
	Convey("Given a bridge with a connected bot", t, func() {
		b, err := New(testConfig())
		So(err, ShouldBeNil)
		server := httptest.NewServer(b.Handler())
		defer server.Close()
		defer b.Close()

		var env environment.Closer = b
		runBot(t, server.URL, 0)

		Convey("Episodes follow the bot", func() {
			step, err := env.Reset()
			So(err, ShouldBeNil)
			So(step.First(), ShouldBeTrue)
			So(step.Observation, ShouldResemble, []float64{0, 0, 0})

			for i := 1; i <= 3; i++ {
				step, err = env.Execute(5)
				So(err, ShouldBeNil)
				So(step.Number, ShouldEqual, i)
				So(step.Reward, ShouldEqual, -1)
				So(step.Observation, ShouldResemble, []float64{float64(i), 0, 5})
			}
			So(step.Last(), ShouldBeTrue)

			_, err = env.Execute(0)
			So(err, ShouldNotBeNil)

			step, err = env.Reset()
			So(err, ShouldBeNil)
			So(step.Number, ShouldEqual, 0)
		})

		Convey("Illegal actions are not sent", func() {
			_, err := env.Reset()
			So(err, ShouldBeNil)
			_, err = env.Execute(16)
			So(err, ShouldNotBeNil)

			step, err := env.Execute(0)
			So(err, ShouldBeNil)
			So(step.Number, ShouldEqual, 1)
		})

		Convey("The specs describe the bot", func() {
			So(environment.ValidateDiscreteActions(env), ShouldBeNil)
			So(env.ObservationSpec().Size, ShouldEqual, 3)
			So(env.ActionSpec().Size, ShouldEqual, 16)
		})
	})

	Convey("Given a bridge cutting off episodes", t, func() {
		c := testConfig()
		c.EpisodeSteps = 2
		b, err := New(c)
		So(err, ShouldBeNil)
		server := httptest.NewServer(b.Handler())
		defer server.Close()
		defer b.Close()
		runBot(t, server.URL, 0)

		_, err = b.Reset()
		So(err, ShouldBeNil)
		_, err = b.Execute(0)
		So(err, ShouldBeNil)
		step, err := b.Execute(0)
		So(err, ShouldBeNil)
		So(step.Last(), ShouldBeTrue)
	})

	Convey("Malformed observations are errors", t, func() {
		b, err := New(testConfig())
		So(err, ShouldBeNil)
		server := httptest.NewServer(b.Handler())
		defer server.Close()
		defer b.Close()
		runBot(t, server.URL, 2)

		_, err = b.Reset()
		So(err, ShouldBeNil)
		_, err = b.Execute(0)
		So(err, ShouldNotBeNil)
	})

	Convey("Without a bot, resets time out", t, func() {
		c := testConfig()
		c.ConnectTimeout = 50 * time.Millisecond
		b, err := New(c)
		So(err, ShouldBeNil)

		_, err = b.Reset()
		So(err, ShouldNotBeNil)
	})

	Convey("Closing aborts waiting for a bot", t, func() {
		b, err := New(testConfig())
		So(err, ShouldBeNil)
		So(b.Close(), ShouldBeNil)

		_, err = b.Reset()
		So(errors.Is(err, ErrClosed), ShouldBeTrue)
	})
}

func TestHealth(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(b.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("health check returned %v %q", resp.StatusCode, body)
	}

	resp, err = http.Post(server.URL+"/healthz", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST health check returned %v", resp.StatusCode)
	}
}

func TestConfigValidate(t *testing.T) {
	c := testConfig()
	c.NumActions = 0
	if _, err := New(c); err == nil {
		t.Error("expected error for zero actions")
	}

	c = testConfig()
	c.StepTimeout = 0
	if _, err := New(c); err == nil {
		t.Error("expected error for zero step timeout")
	}
}
