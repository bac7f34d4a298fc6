package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ValentinKolb/dBook/lib/api"
	"github.com/ValentinKolb/dBook/lib/optimistic"
)

func TestErrorCodes(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		code ErrorCode
		is   error
	}{
		{name: "NotFound", err: fmt.Errorf("delete booking: %w", api.ErrNotFound), code: ErrCNotFound, is: api.ErrNotFound},
		{name: "Conflict", err: fmt.Errorf("create booking: %w", api.ErrConflict), code: ErrCConflict, is: api.ErrConflict},
		{name: "Inactive", err: fmt.Errorf("%w: Court 1", api.ErrFacilityInactive), code: ErrCInactive, is: api.ErrFacilityInactive},
		{name: "Injected", err: api.ErrInjected, code: ErrCInjected, is: api.ErrInjected},
		{name: "Internal", err: errors.New("disk full"), code: ErrCInternal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, msg := EncodeError(tc.err)
			if code != tc.code {
				t.Fatalf("Expected code %d, got %d", tc.code, code)
			}
			if msg != tc.err.Error() {
				t.Errorf("Expected message %q, got %q", tc.err.Error(), msg)
			}

			decoded := DecodeError(code, msg)
			if decoded == nil {
				t.Fatalf("Expected an error")
			}
			if tc.is != nil && !errors.Is(decoded, tc.is) {
				t.Errorf("Expected decoded error to match %v, got %v", tc.is, decoded)
			}
			for _, sentinel := range []error{api.ErrNotFound, api.ErrConflict, api.ErrFacilityInactive, api.ErrInjected} {
				if sentinel != tc.is && errors.Is(decoded, sentinel) {
					t.Errorf("Decoded error must not match %v", sentinel)
				}
			}
		})
	}
}

func TestValidationErrorCode(t *testing.T) {
	err := fmt.Errorf("update booking: %w", optimistic.NewError(optimistic.RetCValidation, "booking: title is required"))

	code, msg := EncodeError(err)
	if code != ErrCValidation || msg != "booking: title is required" {
		t.Fatalf("Unexpected encoding: %d %q", code, msg)
	}
	decoded := DecodeError(code, msg)
	if optimistic.CodeOf(decoded) != optimistic.RetCValidation {
		t.Errorf("Expected validation code, got %v", decoded)
	}

	if code, msg := EncodeError(nil); code != ErrCNone || msg != "" || DecodeError(code, msg) != nil {
		t.Errorf("nil must encode to no error")
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse(MsgTDeleteBooking, fmt.Errorf("delete booking: %w", api.ErrNotFound))
	if resp.MsgType != MsgTDeleteBooking || resp.ErrCode != ErrCNotFound || resp.Err == "" {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if resp := NewResponse(MsgTDeleteBooking, nil); resp.Err != "" || resp.ErrCode != ErrCNone {
		t.Errorf("Unexpected success response: %+v", resp)
	}
}

func TestMessageTypeJSON(t *testing.T) {
	for msgType := range messageTypeNames {
		data, err := msgType.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON(%s) failed: %v", msgType, err)
		}
		var got MessageType
		if err := got.UnmarshalJSON(data); err != nil || got != msgType {
			t.Errorf("Round trip of %s gave %s (%v)", msgType, got, err)
		}
	}
	var unknown MessageType
	if err := unknown.UnmarshalJSON([]byte(`"acquire"`)); err == nil {
		t.Errorf("Expected error for unknown message type")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := ServerConfig{Driver: "sqlite", DSN: ":memory:", Endpoint: ":8080", TimeoutSecond: 5, LogLevel: "info"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}
	for name, mutate := range map[string]func(*ServerConfig){
		"driver":   func(c *ServerConfig) { c.Driver = "rpc" },
		"endpoint": func(c *ServerConfig) { c.Endpoint = "" },
		"timeout":  func(c *ServerConfig) { c.TimeoutSecond = 0 },
		"failrate": func(c *ServerConfig) { c.FailRate = 2 },
	} {
		c := valid
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("Expected %s to be rejected", name)
		}
	}
}
