package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/formcoach/internal/domain/apperr"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWrap(t *testing.T) {
	Convey("Given a cause wrapped with a kind", t, func() {
		cause := errors.New("disk full")
		err := apperr.Wrap("repository.create_session", apperr.ErrPersistence, cause)

		Convey("Then both the kind and the cause are matchable", func() {
			So(errors.Is(err, apperr.ErrPersistence), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(errors.Is(err, apperr.ErrNotFound), ShouldBeFalse)
		})

		Convey("And the message carries op, kind and cause", func() {
			So(err.Error(), ShouldEqual, "repository.create_session: persistence failed: disk full")
		})

		Convey("And further fmt wrapping keeps the kind visible", func() {
			outer := fmt.Errorf("analyze: %w", err)
			So(apperr.KindOf(outer), ShouldEqual, apperr.ErrPersistence)
		})
	})

	Convey("Given a nil cause", t, func() {
		So(apperr.Wrap("op", apperr.ErrInternal, nil), ShouldBeNil)
	})
}

func TestKindOf(t *testing.T) {
	Convey("KindOf classifies errors", t, func() {
		So(apperr.KindOf(nil), ShouldBeNil)
		So(apperr.KindOf(apperr.New("profiles.get", apperr.ErrNotFound)), ShouldEqual, apperr.ErrNotFound)
		So(apperr.KindOf(apperr.Validation("profiles.upsert", "name is required")), ShouldEqual, apperr.ErrValidation)
		So(apperr.KindOf(apperr.New("sessions.list", apperr.ErrUnavailable)), ShouldEqual, apperr.ErrUnavailable)
		So(apperr.KindOf(errors.New("boom")), ShouldEqual, apperr.ErrInternal)
	})
}

func TestReason(t *testing.T) {
	Convey("Reason returns the caller-facing text", t, func() {
		So(apperr.Reason(apperr.Validation("op", "name is required")), ShouldEqual, "name is required")
		So(apperr.Reason(apperr.New("op", apperr.ErrNotFound)), ShouldEqual, "not found")
		So(apperr.Reason(errors.New("plain")), ShouldEqual, "plain")
	})
}
