package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dBook/lib/api"
	"github.com/ValentinKolb/dBook/lib/model"
	"github.com/ValentinKolb/dBook/lib/optimistic"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Request fields
	Tenant        string               `json:"tenant,omitempty"`        // Used for: list calls, UpsertPromotion
	ID            string               `json:"id,omitempty"`            // Used for: Update*, Delete*
	IDs           []string             `json:"ids,omitempty"`           // Used for: DeleteBookings
	FacilityPatch *model.FacilityPatch `json:"facilityPatch,omitempty"` // Used for: UpdateFacility
	BookingPatch  *model.BookingPatch  `json:"bookingPatch,omitempty"`  // Used for: UpdateBooking
	Updates       []api.BookingUpdate  `json:"updates,omitempty"`       // Used for: UpdateBookings
	Promotion     *model.Promotion     `json:"promotion,omitempty"`     // Used for: UpsertPromotion

	// Request and response fields
	Facility   *model.Facility   `json:"facility,omitempty"`   // Used for: CreateFacility, UpdateFacility
	Booking    *model.Booking    `json:"booking,omitempty"`    // Used for: CreateBooking, UpdateBooking
	Bookings   []model.Booking   `json:"bookings,omitempty"`   // Used for: ListBookings, CreateBookings, UpdateBookings
	Facilities []model.Facility  `json:"facilities,omitempty"` // Used for: ListFacilities (response)
	Promotions []model.Promotion `json:"promotions,omitempty"` // Used for: ListPromotions (response)

	// Response only fields
	Err     string    `json:"err,omitempty"`     // Empty if no error, otherwise contains the error message
	ErrCode ErrorCode `json:"errCode,omitempty"` // Category of Err, restored as a sentinel by the client
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewListRequest creates a request for one of the list calls of a tenant
func NewListRequest(msgType MessageType, tenant string) *Message {
	return &Message{MsgType: msgType, Tenant: tenant}
}

// NewCreateFacilityRequest creates a new CreateFacility request
func NewCreateFacilityRequest(f model.Facility) *Message {
	return &Message{MsgType: MsgTCreateFacility, Facility: &f}
}

// NewUpdateFacilityRequest creates a new UpdateFacility request
func NewUpdateFacilityRequest(id string, p model.FacilityPatch) *Message {
	return &Message{MsgType: MsgTUpdateFacility, ID: id, FacilityPatch: &p}
}

// NewCreateBookingRequest creates a new CreateBooking request
func NewCreateBookingRequest(b model.Booking) *Message {
	return &Message{MsgType: MsgTCreateBooking, Booking: &b}
}

// NewCreateBookingsRequest creates a new CreateBookings request
func NewCreateBookingsRequest(bookings []model.Booking) *Message {
	return &Message{MsgType: MsgTCreateBookings, Bookings: bookings}
}

// NewUpdateBookingRequest creates a new UpdateBooking request
func NewUpdateBookingRequest(id string, p model.BookingPatch) *Message {
	return &Message{MsgType: MsgTUpdateBooking, ID: id, BookingPatch: &p}
}

// NewUpdateBookingsRequest creates a new UpdateBookings request
func NewUpdateBookingsRequest(updates []api.BookingUpdate) *Message {
	return &Message{MsgType: MsgTUpdateBookings, Updates: updates}
}

// NewDeleteRequest creates a request deleting one facility or booking
func NewDeleteRequest(msgType MessageType, id string) *Message {
	return &Message{MsgType: msgType, ID: id}
}

// NewDeleteBookingsRequest creates a new DeleteBookings request
func NewDeleteBookingsRequest(ids []string) *Message {
	return &Message{MsgType: MsgTDeleteBookings, IDs: ids}
}

// NewUpsertPromotionRequest creates a new UpsertPromotion request
func NewUpsertPromotionRequest(tenant string, p model.Promotion) *Message {
	return &Message{MsgType: MsgTUpsertPromotion, Tenant: tenant, Promotion: &p}
}

// NewResponse creates a response of the given type. A non nil err is encoded into Err and ErrCode.
func NewResponse(msgType MessageType, err error) *Message {
	msg := &Message{
		MsgType: msgType,
	}
	if err != nil {
		msg.ErrCode, msg.Err = EncodeError(err)
	}
	return msg
}

// NewErrorResponse creates a new error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
		ErrCode: ErrCInternal,
	}
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// ErrorCode classifies the error of a response so the client can restore the sentinel
// errors of the api package.
type ErrorCode uint8

const (
	ErrCNone       ErrorCode = iota // No error
	ErrCInternal                    // Any other error
	ErrCNotFound                    // api.ErrNotFound
	ErrCConflict                    // api.ErrConflict
	ErrCInactive                    // api.ErrFacilityInactive
	ErrCInjected                    // api.ErrInjected
	ErrCValidation                  // optimistic.RetCValidation
)

// EncodeError returns the code and message to transmit for err.
func EncodeError(err error) (ErrorCode, string) {
	var oe *optimistic.Error
	switch {
	case err == nil:
		return ErrCNone, ""
	case errors.Is(err, api.ErrNotFound):
		return ErrCNotFound, err.Error()
	case errors.Is(err, api.ErrConflict):
		return ErrCConflict, err.Error()
	case errors.Is(err, api.ErrFacilityInactive):
		return ErrCInactive, err.Error()
	case errors.Is(err, api.ErrInjected):
		return ErrCInjected, err.Error()
	case errors.As(err, &oe) && oe.Code == optimistic.RetCValidation:
		return ErrCValidation, oe.Msg
	default:
		return ErrCInternal, err.Error()
	}
}

// DecodeError restores the error of a response. Validation errors become *optimistic.Error
// values again, the other categories wrap their api sentinel.
func DecodeError(code ErrorCode, msg string) error {
	switch code {
	case ErrCNone:
		if msg == "" {
			return nil
		}
		return &RemoteError{Msg: msg}
	case ErrCNotFound:
		return &RemoteError{Msg: msg, Kind: api.ErrNotFound}
	case ErrCConflict:
		return &RemoteError{Msg: msg, Kind: api.ErrConflict}
	case ErrCInactive:
		return &RemoteError{Msg: msg, Kind: api.ErrFacilityInactive}
	case ErrCInjected:
		return &RemoteError{Msg: msg, Kind: api.ErrInjected}
	case ErrCValidation:
		return optimistic.NewError(optimistic.RetCValidation, msg)
	default:
		return &RemoteError{Msg: msg}
	}
}

// RemoteError is an error reported by the server.
type RemoteError struct {
	Msg  string
	Kind error // The api sentinel, nil for internal errors
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("rpc: %s", e.Msg)
}

func (e *RemoteError) Unwrap() error {
	return e.Kind
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgTSuccess:         "success",
	MsgTError:           "error",
	MsgTListFacilities:  "listFacilities",
	MsgTCreateFacility:  "createFacility",
	MsgTUpdateFacility:  "updateFacility",
	MsgTDeleteFacility:  "deleteFacility",
	MsgTListBookings:    "listBookings",
	MsgTCreateBooking:   "createBooking",
	MsgTCreateBookings:  "createBookings",
	MsgTUpdateBooking:   "updateBooking",
	MsgTUpdateBookings:  "updateBookings",
	MsgTDeleteBooking:   "deleteBooking",
	MsgTDeleteBookings:  "deleteBookings",
	MsgTListPromotions:  "listPromotions",
	MsgTUpsertPromotion: "upsertPromotion",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	for msgType, name := range messageTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Facility operations

	MsgTListFacilities
	MsgTCreateFacility
	MsgTUpdateFacility
	MsgTDeleteFacility

	// Booking operations

	MsgTListBookings
	MsgTCreateBooking
	MsgTCreateBookings // All-or-nothing
	MsgTUpdateBooking
	MsgTUpdateBookings // All-or-nothing
	MsgTDeleteBooking
	MsgTDeleteBookings // All-or-nothing

	// Promotion operations

	MsgTListPromotions
	MsgTUpsertPromotion
)
