package zimgerr

import (
	"errors"
	"testing"
)

func TestCodeClass(t *testing.T) {
	cases := []struct {
		code Code
		want Class
	}{
		{OutOfMemory, ClassOutOfMemory},
		{UserCallbackFailed, ClassUserCallbackFailed},
		{GreyscaleSubsampling, ClassLogic},
		{BitDepthOverflow, ClassLogic},
		{EnumOutOfRange, ClassIllegalArgument},
		{InvalidImageSize, ClassIllegalArgument},
		{NoColorspaceConversion, ClassUnsupportedOperation},
		{ResamplingNotAvailable, ClassUnsupportedOperation},
		{Unknown, ClassNone},
	}
	for _, c := range cases {
		if got := c.code.Class(); got != c.want {
			t.Errorf("Code(%d).Class() = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(NoColorspaceConversion, cause, "no path from A to B")
	if !errors.Is(wrapped, cause) {
		t.Fatalf("errors.Is should find the wrapped cause")
	}
	if CodeOf(wrapped) != NoColorspaceConversion {
		t.Fatalf("CodeOf = %v, want NoColorspaceConversion", CodeOf(wrapped))
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if CodeOf(errors.New("plain")) != Unknown {
		t.Fatalf("CodeOf(plain error) should be Unknown")
	}
}
