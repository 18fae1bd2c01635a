package model

// Room is a screening room.  Its seats are generated when the room is
// created, one per seat number in 1..SeatCount.
//
// Fields:
//  ID        – primary key identifier.
//  SeatCount – capacity of the room, always greater than zero.
type Room struct {
	ID        uint64 // rooms.id
	SeatCount int    // rooms.seat_count
}
