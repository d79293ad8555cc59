package clock_test

import (
	"testing"
	"time"

	"github.com/LuSo58/billboards-evaluation/internal/clock"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClock(t *testing.T) {
	Convey("Given a manual clock", t, func() {
		start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
		c := clock.NewManual(start)

		Convey("Then it should report the start in UTC", func() {
			So(c.Now().Location(), ShouldEqual, time.UTC)
			So(c.Now().Equal(start), ShouldBeTrue)
		})

		Convey("When advanced", func() {
			c.Advance(90 * time.Second)

			Convey("Then it should move by exactly that much", func() {
				So(c.Now().Sub(start), ShouldEqual, 90*time.Second)
			})
		})
	})

	Convey("Given the system clock", t, func() {
		c := clock.NewSystem()

		Convey("Then it should be close to time.Now in UTC", func() {
			So(c.Now().Location(), ShouldEqual, time.UTC)
			So(time.Since(c.Now()), ShouldBeLessThan, time.Second)
		})
	})
}
