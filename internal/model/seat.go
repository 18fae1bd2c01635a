package model

// SeatState is the occupancy flag stored on every seat.
type SeatState string

const (
	SeatFree     SeatState = "FREE"
	SeatOccupied SeatState = "OCCUPIED"
)

// Seat describes a numbered position inside a room.  Seats are uniquely
// identified by their room and number.  State only changes through the
// seat registry's reserve and release operations.
//
// Fields:
//  ID     – primary key identifier.
//  RoomID – room to which this seat belongs.
//  Number – seat number, unique within the room.
//  State  – FREE or OCCUPIED.
type Seat struct {
	ID     uint64    // seats.id
	RoomID uint64    // seats.room_id
	Number int       // seats.number
	State  SeatState // seats.state
}

// Occupied reports whether the seat is currently taken.
func (s Seat) Occupied() bool { return s.State == SeatOccupied }
