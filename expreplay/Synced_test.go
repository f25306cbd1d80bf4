package expreplay

import (
	"sort"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/sync/errgroup"
)

func TestSynced(t *testing.T) {
	Convey("Given a synced buffer shared by several writers", t, func() {
		const writers, pushes = 4, 50
		buffer, err := New(writers*pushes, NewUniformSelector(7))
		So(err, ShouldBeNil)
		synced := NewSynced(buffer)

		var g errgroup.Group
		for w := 0; w < writers; w++ {
			w := w
			g.Go(func() error {
				for i := 0; i < pushes; i++ {
					synced.Push(transition(w*pushes + i))
					if _, err := synced.Sample(1); err != nil {
						return err
					}
				}
				synced.Push(nil)
				return nil
			})
		}
		So(g.Wait(), ShouldBeNil)

		Convey("Every pushed transition is stored once", func() {
			So(synced.Len(), ShouldEqual, writers*pushes)
			So(synced.Capacity(), ShouldEqual, writers*pushes)

			snapshot := synced.Snapshot()
			actions := make([]int, len(snapshot))
			for i, tr := range snapshot {
				actions[i] = tr.Action
			}
			sort.Ints(actions)
			for i, a := range actions {
				So(a, ShouldEqual, i)
			}
		})

		Convey("Writers' own transitions stay in push order", func() {
			last := make([]int, writers)
			for i := range last {
				last[i] = -1
			}
			for _, tr := range synced.Snapshot() {
				w := tr.Action / pushes
				So(tr.Action, ShouldBeGreaterThan, last[w])
				last[w] = tr.Action
			}
		})

		Convey("Sampling is bounded by the stored transitions", func() {
			batch, err := synced.Sample(writers * pushes)
			So(err, ShouldBeNil)
			So(len(batch), ShouldEqual, writers*pushes)

			_, err = synced.Sample(writers*pushes + 1)
			So(IsInsufficientSamples(err), ShouldBeTrue)
		})
	})
}
